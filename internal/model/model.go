// Package model defines the domain types used across the application.
package model

import "time"

// POI represents a point of interest on the map.
type POI struct {
	ID        int64
	Name      string
	Lat       float64
	Lon       float64
	Objective Task
	Reward    Task
	UpdatedAt time.Time
	UpdatedBy string
}

// Arena represents a battle arena on the map. Arenas carry no research
// state but participate in coordinate and name resolution.
type Arena struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

// Task is a research objective or reward: a catalog type plus its
// type-specific parameters.
type Task struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Param returns the named parameter, or nil if absent.
func (t Task) Param(key string) any {
	if t.Params == nil {
		return nil
	}
	return t.Params[key]
}

// WebhookKind defines the destination format of a webhook.
type WebhookKind string

// Supported webhook kinds.
const (
	WebhookJSON     WebhookKind = "json"
	WebhookTelegram WebhookKind = "telegram"
)

// FilterMode defines how a webhook's task filter list is interpreted.
type FilterMode string

// Supported filter modes.
const (
	ModeWhitelist FilterMode = "whitelist"
	ModeBlacklist FilterMode = "blacklist"
)

// TaskFilter is a list of task patterns plus the mode deciding whether a
// match enables or suppresses the hook.
type TaskFilter struct {
	Mode     FilterMode `json:"mode"`
	Patterns []Task     `json:"patterns"`
}

// ParseMode defines the Telegram message formatting mode.
type ParseMode string

// Supported Telegram parse modes.
const (
	ParseText     ParseMode = "text"
	ParseMarkdown ParseMode = "md"
	ParseHTML     ParseMode = "html"
)

// TelegramOptions holds the Telegram-specific webhook settings. The bot
// token is encrypted at rest; the decrypted form only exists in memory for
// the duration of one dispatch.
type TelegramOptions struct {
	BotToken            string    `json:"bot_token"`
	ParseMode           ParseMode `json:"parse_mode"`
	DisableNotification bool      `json:"disable_notification"`
	DisableLinkPreview  bool      `json:"disable_link_preview"`
}

// Webhook represents a configured outbound notification destination.
type Webhook struct {
	ID              int64
	Active          bool
	Kind            WebhookKind
	Target          string
	Language        string
	IconSet         string
	SpeciesSet      string
	ShowSpeciesIcon bool
	GeofenceID      *int64
	ObjectiveFilter TaskFilter
	RewardFilter    TaskFilter
	Body            string
	Options         string // encrypted blob, contents depend on Kind
	CreatedAt       time.Time
}

// LatLon is a single geofence vertex.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geofence represents a named polygonal region.
type Geofence struct {
	ID       int64
	Name     string
	Vertices []LatLon
}

// CallerKind classifies how the reporting client authenticated.
// Coordinate and free-text POI resolution are only available to
// non-interactive API clients.
type CallerKind string

// Supported caller kinds.
const (
	CallerInteractive CallerKind = "interactive"
	CallerClient      CallerKind = "client"
)

// Report is the fully resolved outcome of a research report: the input to
// the webhook dispatch stage.
type Report struct {
	POI        POI
	Objective  Task
	Reward     Task
	Reporter   string
	ReportedAt time.Time
}
