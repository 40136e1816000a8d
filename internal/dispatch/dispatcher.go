// Package dispatch delivers rendered report notifications to configured
// webhooks. Hooks are filtered for eligibility, rendered with their own
// language/icon/escaping settings, and posted concurrently; one hook's
// failure never affects another's attempt or the report request that
// triggered the batch.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldmap/internal/i18n"
	"fieldmap/internal/icons"
	"fieldmap/internal/model"
	"fieldmap/internal/template"
)

// HookSource provides the webhook configuration the dispatcher reads.
type HookSource interface {
	ListWebhooks(ctx context.Context) ([]model.Webhook, error)
	GetGeofence(ctx context.Context, id int64) (*model.Geofence, error)
}

// Sender delivers one rendered notification to one destination kind.
type Sender interface {
	Deliver(ctx context.Context, hook model.Webhook, rctx *template.Context) error
}

// Options carries the instance-wide rendering defaults.
type Options struct {
	SiteURL        string
	NavProvider    string
	DefaultLang    string
	DefaultIconSet string
	DefaultSpecies string
	Concurrency    int
	CallTimeout    time.Duration
	QueueSize      int
}

// Dispatcher runs the webhook notification stage.
type Dispatcher struct {
	hooks   HookSource
	senders map[model.WebhookKind]Sender
	bundle  *i18n.Bundle
	icons   *icons.Registry
	opts    Options
	log     *slog.Logger
	queue   chan model.Report
}

// New creates a Dispatcher.
func New(hooks HookSource, senders map[model.WebhookKind]Sender, bundle *i18n.Bundle, registry *icons.Registry, opts Options, log *slog.Logger) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Dispatcher{
		hooks:   hooks,
		senders: senders,
		bundle:  bundle,
		icons:   registry,
		opts:    opts,
		log:     log,
		queue:   make(chan model.Report, opts.QueueSize),
	}
}

// Dispatch enqueues a report for background delivery. The report request
// has already succeeded by this point, so a full queue drops the batch
// rather than blocking the response.
func (d *Dispatcher) Dispatch(report model.Report) {
	select {
	case d.queue <- report:
	default:
		d.log.Error("dispatch queue full, dropping report", "poi_id", report.POI.ID)
	}
}

// Run consumes the dispatch queue, blocking until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report := <-d.queue:
			d.DispatchAndWait(ctx, report)
		}
	}
}

// DispatchAndWait runs one report's delivery batch synchronously:
// every eligible hook is attempted concurrently, bounded by the
// configured limit, and all failures are contained per hook.
func (d *Dispatcher) DispatchAndWait(ctx context.Context, report model.Report) {
	webhooks, err := d.hooks.ListWebhooks(ctx)
	if err != nil {
		d.log.Error("list webhooks", "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, hook := range webhooks {
		g.Go(func() error {
			d.deliver(ctx, hook, report)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, hook model.Webhook, report model.Report) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch panic", "hook_id", hook.ID, "panic", r)
		}
	}()

	var fence *model.Geofence
	if hook.GeofenceID != nil {
		var err error
		fence, err = d.hooks.GetGeofence(ctx, *hook.GeofenceID)
		if err != nil {
			d.log.Error("load geofence", "hook_id", hook.ID, "geofence_id", *hook.GeofenceID, "error", err)
			return
		}
	}
	if !Eligible(hook, report, fence) {
		return
	}

	sender, ok := d.senders[hook.Kind]
	if !ok {
		d.log.Error("no sender for webhook kind", "hook_id", hook.ID, "kind", hook.Kind)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
	defer cancel()

	if err := sender.Deliver(callCtx, hook, d.renderContext(hook, report)); err != nil {
		d.log.Error("webhook delivery failed", "hook_id", hook.ID, "kind", hook.Kind, "error", err)
		return
	}
	d.log.Debug("webhook delivered", "hook_id", hook.ID, "kind", hook.Kind)
}

// renderContext binds the hook's settings over the instance defaults.
// The report timestamp was captured once before the batch, so every
// hook renders the same time.
func (d *Dispatcher) renderContext(hook model.Webhook, report model.Report) *template.Context {
	lang := hook.Language
	if lang == "" {
		lang = d.opts.DefaultLang
	}
	iconSet := hook.IconSet
	if iconSet == "" {
		iconSet = d.opts.DefaultIconSet
	}
	speciesSet := hook.SpeciesSet
	if speciesSet == "" {
		speciesSet = d.opts.DefaultSpecies
	}

	return &template.Context{
		POI:         report.POI,
		Objective:   report.Objective,
		Reward:      report.Reward,
		Reporter:    report.Reporter,
		Timestamp:   report.ReportedAt,
		Language:    lang,
		IconSet:     iconSet,
		SpeciesSet:  speciesSet,
		SpeciesIcon: hook.ShowSpeciesIcon,
		Variant:     icons.VariantLight,
		SiteURL:     d.opts.SiteURL,
		NavProvider: d.opts.NavProvider,
		Bundle:      d.bundle,
		Icons:       d.icons,
	}
}
