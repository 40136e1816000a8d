package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fieldmap/internal/i18n"
	"fieldmap/internal/icons"
	"fieldmap/internal/model"
	"fieldmap/internal/secrets"
)

type fakeSource struct {
	hooks  []model.Webhook
	fences map[int64]model.Geofence
}

func (s *fakeSource) ListWebhooks(context.Context) ([]model.Webhook, error) {
	return s.hooks, nil
}

func (s *fakeSource) GetGeofence(_ context.Context, id int64) (*model.Geofence, error) {
	fence, ok := s.fences[id]
	if !ok {
		return nil, fmt.Errorf("geofence %d not found", id)
	}
	return &fence, nil
}

// recorder collects request bodies from an httptest handler.
type recorder struct {
	mu     sync.Mutex
	bodies []string
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, string(body))
		r.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func newDispatcher(t *testing.T, source *fakeSource) *Dispatcher {
	t.Helper()
	bundle, err := i18n.NewBundle("en")
	if err != nil {
		t.Fatalf("NewBundle() error = %v", err)
	}
	registry := icons.NewRegistry([]icons.Set{
		{ID: "default", BaseURL: "https://icons.example.com", Format: icons.FormatVector},
	}, "default", "default")

	senders := map[model.WebhookKind]Sender{
		model.WebhookJSON: NewJSONSender(5 * time.Second),
	}
	opts := Options{
		SiteURL:        "https://map.example.com",
		NavProvider:    "https://nav.example.com/?q={LAT},{LON}",
		DefaultLang:    "en",
		DefaultIconSet: "default",
		DefaultSpecies: "default",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(source, senders, bundle, registry, opts, log)
}

func TestDispatchAndWaitJSON(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	hook := activeHook()
	hook.Target = srv.URL
	hook.Body = `{"poi": "<%POI%>", "task": "<%OBJECTIVE%>"}`

	d := newDispatcher(t, &fakeSource{hooks: []model.Webhook{hook}})
	report := sampleReport()
	report.Objective = model.Task{Type: "battle", Params: map[string]any{"quantity": 1}}
	d.DispatchAndWait(context.Background(), report)

	if rec.count() != 1 {
		t.Fatalf("got %d deliveries, want 1", rec.count())
	}

	var payload struct {
		POI  string `json:"poi"`
		Task string `json:"task"`
	}
	if err := json.Unmarshal([]byte(rec.bodies[0]), &payload); err != nil {
		t.Fatalf("delivered body is not valid JSON: %v", err)
	}
	if payload.POI != "Clock Tower" {
		t.Errorf("poi = %q, want %q", payload.POI, "Clock Tower")
	}
	if payload.Task != "Battle in an arena" {
		t.Errorf("task = %q, want %q", payload.Task, "Battle in an arena")
	}
}

func TestDispatchGeofencedHookSkipped(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	fenceID := int64(1)
	hook := activeHook()
	hook.Target = srv.URL
	hook.Body = `{"poi": "<%POI%>"}`
	hook.GeofenceID = &fenceID

	source := &fakeSource{
		hooks: []model.Webhook{hook},
		fences: map[int64]model.Geofence{
			fenceID: {ID: fenceID, Name: "far away", Vertices: []model.LatLon{
				{Lat: 50, Lon: 50},
				{Lat: 51, Lon: 50},
				{Lat: 50, Lon: 51},
			}},
		},
	}

	d := newDispatcher(t, source)

	// The fence decision must hold no matter what else the report
	// varies: tasks, params, reporters.
	objectives := []model.Task{
		{Type: "catch", Params: map[string]any{"quantity": 3}},
		{Type: "battle", Params: map[string]any{"quantity": 1}},
		{Type: "rocket_grunt", Params: map[string]any{}},
		{Type: "win_raid_tier", Params: map[string]any{"quantity": 1, "min_tier": 3}},
	}
	rewards := []model.Task{
		{Type: "stardust", Params: map[string]any{"quantity": 500}},
		{Type: "encounter", Params: map[string]any{"species": []string{"pidgey"}}},
		{Type: "rare_candy", Params: map[string]any{"quantity": 3}},
	}
	reporters := []string{"alice", "bob", "carol"}

	for i := 0; i < 100; i++ {
		report := sampleReport()
		report.Objective = objectives[i%len(objectives)]
		report.Reward = rewards[i%len(rewards)]
		report.Reporter = reporters[i%len(reporters)]
		report.ReportedAt = time.Date(2026, 8, 28, 12, 0, i, 0, time.UTC)
		d.DispatchAndWait(context.Background(), report)
	}

	if rec.count() != 0 {
		t.Errorf("got %d deliveries for out-of-fence reports, want 0", rec.count())
	}
}

func TestDispatchFailureIsolated(t *testing.T) {
	okRec := &recorder{}
	okSrv := httptest.NewServer(okRec.handler(http.StatusOK))
	defer okSrv.Close()

	failRec := &recorder{}
	failSrv := httptest.NewServer(failRec.handler(http.StatusInternalServerError))
	defer failSrv.Close()

	failing := activeHook()
	failing.ID = 1
	failing.Target = failSrv.URL
	failing.Body = `{"poi": "<%POI%>"}`

	healthy := activeHook()
	healthy.ID = 2
	healthy.Target = okSrv.URL
	healthy.Body = `{"poi": "<%POI%>"}`

	d := newDispatcher(t, &fakeSource{hooks: []model.Webhook{failing, healthy}})
	d.DispatchAndWait(context.Background(), sampleReport())

	if failRec.count() == 0 {
		t.Error("failing hook never attempted")
	}
	if okRec.count() != 1 {
		t.Errorf("healthy hook got %d deliveries, want 1", okRec.count())
	}
}

func TestDispatchSharedTimestamp(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	first := activeHook()
	first.ID = 1
	first.Target = srv.URL
	first.Body = `<%TIME(2006-01-02T15:04:05.000000000Z07:00)%>`

	second := first
	second.ID = 2

	d := newDispatcher(t, &fakeSource{hooks: []model.Webhook{first, second}})
	report := sampleReport()
	report.ReportedAt = time.Date(2026, 8, 28, 12, 30, 45, 123456789, time.UTC)
	d.DispatchAndWait(context.Background(), report)

	if rec.count() != 2 {
		t.Fatalf("got %d deliveries, want 2", rec.count())
	}
	if rec.bodies[0] != rec.bodies[1] {
		t.Errorf("hooks rendered different timestamps: %q vs %q", rec.bodies[0], rec.bodies[1])
	}
	if want := "2026-08-28T12:30:45.123456789Z"; rec.bodies[0] != want {
		t.Errorf("rendered timestamp = %q, want %q", rec.bodies[0], want)
	}
}

func TestDispatchQueueWorker(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	hook := activeHook()
	hook.Target = srv.URL
	hook.Body = `{"poi": "<%POI%>"}`

	d := newDispatcher(t, &fakeSource{hooks: []model.Webhook{hook}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Dispatch(sampleReport())

	deadline := time.After(5 * time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("queued report never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestTelegramSenderDeliver(t *testing.T) {
	keyring, err := secrets.NewKeyring("test-instance-secret")
	if err != nil {
		t.Fatalf("NewKeyring() error = %v", err)
	}
	blob, err := keyring.Seal(map[string]string{
		"bot_token":            "123:abc",
		"parse_mode":           "md",
		"disable_notification": "true",
		"disable_link_preview": "true",
	}, SecretPurposeTelegram)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	var (
		mu   sync.Mutex
		sent map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot123:abc/getMe":
			fmt.Fprint(w, `{"ok":true,"result":{"id":123,"is_bot":true,"first_name":"test","username":"test_bot"}}`)
		case "/bot123:abc/sendMessage":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse sendMessage form: %v", err)
			}
			mu.Lock()
			sent = map[string]string{
				"chat_id":                  r.PostFormValue("chat_id"),
				"text":                     r.PostFormValue("text"),
				"parse_mode":               r.PostFormValue("parse_mode"),
				"disable_notification":     r.PostFormValue("disable_notification"),
				"disable_web_page_preview": r.PostFormValue("disable_web_page_preview"),
			}
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":4242,"type":"private"}}}`)
		default:
			t.Errorf("unexpected bot API path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sender := NewTelegramSenderWithEndpoint(keyring, srv.Client(), srv.URL+"/bot%s/%s")

	hook := model.Webhook{
		ID:      1,
		Active:  true,
		Kind:    model.WebhookTelegram,
		Target:  "tg://send?to=4242",
		Body:    `New task at <%POI%>`,
		Options: blob,
	}

	d := newDispatcher(t, &fakeSource{})
	rctx := d.renderContext(hook, sampleReport())
	rctx.POI.Name = "Old_Town Square"

	if err := sender.Deliver(context.Background(), hook, rctx); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if sent == nil {
		t.Fatal("sendMessage never called")
	}
	if sent["chat_id"] != "4242" {
		t.Errorf("chat_id = %q, want %q", sent["chat_id"], "4242")
	}
	if want := `New task at Old\_Town Square`; sent["text"] != want {
		t.Errorf("text = %q, want %q", sent["text"], want)
	}
	if sent["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %q, want %q", sent["parse_mode"], "Markdown")
	}
	if sent["disable_notification"] != "true" {
		t.Errorf("disable_notification = %q, want %q", sent["disable_notification"], "true")
	}
	if sent["disable_web_page_preview"] != "true" {
		t.Errorf("disable_web_page_preview = %q, want %q", sent["disable_web_page_preview"], "true")
	}
}

func TestTelegramOptions(t *testing.T) {
	tests := []struct {
		name   string
		sealed map[string]string
		want   model.TelegramOptions
	}{
		{
			name:   "empty blob",
			sealed: map[string]string{},
			want:   model.TelegramOptions{},
		},
		{
			name: "all fields",
			sealed: map[string]string{
				"bot_token":            "123:abc",
				"parse_mode":           "html",
				"disable_notification": "true",
				"disable_link_preview": "true",
			},
			want: model.TelegramOptions{
				BotToken:            "123:abc",
				ParseMode:           model.ParseHTML,
				DisableNotification: true,
				DisableLinkPreview:  true,
			},
		},
		{
			name: "explicit false flags",
			sealed: map[string]string{
				"bot_token":            "123:abc",
				"parse_mode":           "text",
				"disable_notification": "false",
				"disable_link_preview": "false",
			},
			want: model.TelegramOptions{
				BotToken:  "123:abc",
				ParseMode: model.ParseText,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, telegramOptions(tt.sealed)); diff != "" {
				t.Errorf("telegramOptions() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChatIDFromTarget(t *testing.T) {
	tests := []struct {
		target  string
		want    int64
		wantErr bool
	}{
		{target: "tg://send?to=4242", want: 4242},
		{target: "tg://send?to=-100123", want: -100123},
		{target: "https://example.com", wantErr: true},
		{target: "tg://send", wantErr: true},
		{target: "tg://send?to=abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := chatIDFromTarget(tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("chatIDFromTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("chatIDFromTarget(%q) = %d, want %d", tt.target, got, tt.want)
		}
	}
}
