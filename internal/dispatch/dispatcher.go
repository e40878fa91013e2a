package dispatch

import (
	"context"
	"log/slog"
	"time"

	"promptrun/internal/core"
	"promptrun/internal/providers"
)

// Observer receives the outcome of each dispatch. Implemented by the
// observability package; a nil observer disables collection.
type Observer interface {
	ObserveDispatch(provider core.ProviderID, outcome string, duration time.Duration)
}

// Dispatcher routes conversations to configured backend capabilities.
// It holds no mutable state after construction and is safe for
// concurrent use; each Generate call is an independent linear pipeline.
type Dispatcher struct {
	config   *providers.Config
	caps     map[core.ProviderID]core.Capability
	observer Observer
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCapability injects a capability for a provider, replacing whatever
// the factory would build. This is the seam test doubles plug into.
func WithCapability(id core.ProviderID, capability core.Capability) Option {
	return func(d *Dispatcher) {
		d.caps[id] = capability
	}
}

// WithObserver attaches a dispatch outcome observer.
func WithObserver(obs Observer) Option {
	return func(d *Dispatcher) {
		d.observer = obs
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New builds a Dispatcher for the given provider configuration,
// constructing one capability per configured provider via the factory.
// Configuration must be fully loaded before this point; the Dispatcher
// never reloads it. A provider whose capability cannot be built is left
// out of the table and surfaces later as a not-configured failure; the
// two negative outcomes are deliberately combined.
func New(config *providers.Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config: config,
		caps:   make(map[core.ProviderID]core.Capability, config.Len()),
		logger: slog.Default(),
	}
	for _, id := range config.IDs() {
		cfg, _ := config.Get(id)
		capability, err := providers.Create(cfg)
		if err != nil {
			d.logger.Warn("skipping provider without capability", "provider", id, "error", err)
			continue
		}
		d.caps[id] = capability
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Generate runs one full dispatch and returns the extracted text, or a
// *core.DispatchError describing the single failure that ended the call.
// There is no partial output and no retry: one backend attempt per call.
func (d *Dispatcher) Generate(ctx context.Context, conv core.Conversation, model string) (text string, err error) {
	start := time.Now()
	provider := core.ProviderUnknown

	// Catch-all stage: anything escaping the pipeline, error or not,
	// leaves as a DispatchError carrying the provider known at capture.
	defer func() {
		if r := recover(); r != nil {
			err = core.Coerce(provider, r)
		}
		d.observe(provider, err, time.Since(start))
	}()

	provider = Resolve(model)
	if provider == core.ProviderUnknown {
		return "", core.NewUnknownModelError(model)
	}

	cfg, configured := d.config.Get(provider)
	capability, built := d.caps[provider]
	if !configured || !built {
		return "", core.NewNotConfiguredError(provider, d.config.IDs())
	}

	prompt := Translate(conv)
	reqModel := model
	if reqModel == "" {
		reqModel = cfg.DefaultModel
	}

	completion, err := capability.Complete(ctx, &core.CompletionRequest{
		Model:  reqModel,
		System: prompt.System,
		Turns:  prompt.Turns,
	})
	if err != nil {
		return "", core.Coerce(provider, err)
	}
	if completion == nil {
		return "", core.NewEmptyResponseError(provider, "completion")
	}
	return completion.Text(), nil
}

// GeneratePrompt is the single-turn convenience form: one system message
// followed by one user message.
func (d *Dispatcher) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return d.Generate(ctx, core.Conversation{
		{Role: core.RoleSystem, Content: systemPrompt},
		{Role: core.RoleUser, Content: userPrompt},
	}, model)
}

// observe reports the call outcome to the attached observer, if any.
func (d *Dispatcher) observe(provider core.ProviderID, err error, duration time.Duration) {
	if d.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(core.Coerce(provider, err).Type)
	}
	d.observer.ObserveDispatch(provider, outcome, duration)
}
