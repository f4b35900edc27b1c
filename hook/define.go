package hook

import (
	"context"
	"fmt"
)

// Definition is a factory for a typed suspension point (spec §3
// HookDefinition). Definitions are created once at startup and are
// immutable afterward.
type Definition struct {
	Name        string
	Description string
	TimeoutMs   int64
	DefaultValue any
	Validate    Validator
}

// Factory is bound to a Registry and a Definition, exposing the Wait /
// WaitWithID operations from spec §6's hook API
// (`defineHook(definition)` → `{wait, waitWithId}`).
type Factory struct {
	registry *Registry
	def      Definition
}

// Define binds a Definition to a Registry, returning a Factory.
func Define(registry *Registry, def Definition) *Factory {
	return &Factory{registry: registry, def: def}
}

// Wait registers a new hook under a freshly minted ID and blocks until it
// resolves, rejects, times out, or ctx is cancelled.
func (f *Factory) Wait(ctx context.Context, payload any) (Outcome, error) {
	id := f.registry.NewID(f.def.Name)
	return f.WaitWithID(ctx, id, payload)
}

// WaitWithID registers a new hook under the caller-supplied ID. Useful
// when the ID must be known before the wait begins (e.g., to embed it in
// a webhook URL handed to an external approver).
func (f *Factory) WaitWithID(ctx context.Context, id string, payload any) (Outcome, error) {
	wait, err := f.registry.Register(ctx, id, f.def.Name, payload, Options{
		Description:  f.def.Description,
		TimeoutMs:    f.def.TimeoutMs,
		DefaultValue: f.def.DefaultValue,
		Validate:     f.def.Validate,
	})
	if err != nil {
		return Outcome{}, err
	}
	return wait(ctx), nil
}

// Webhook is a hook created to be resolved by an external HTTP callback
// rather than an in-process caller (spec §6 createWebhook).
type Webhook struct {
	ID   string
	URL  string
	wait func(context.Context) Outcome
}

// Wait blocks until the webhook resolves, rejects, times out, or ctx is
// cancelled.
func (w *Webhook) Wait(ctx context.Context) Outcome {
	return w.wait(ctx)
}

// WebhookOptions configures CreateWebhook.
type WebhookOptions struct {
	Name         string
	Payload      any
	Description  string
	TimeoutMs    int64
	DefaultValue any
	Validate     Validator
	// URLBase, if set, is combined with the generated ID to form the
	// webhook's externally visible callback URL
	// (e.g. "https://host/hooks" -> "https://host/hooks/hook-...").
	URLBase string
}

// CreateWebhook registers a webhook-backed hook and returns its ID,
// callback URL (if URLBase was set), and a function to await its
// resolution.
func CreateWebhook(registry *Registry, ctx context.Context, opts WebhookOptions) (*Webhook, error) {
	id := registry.NewID(opts.Name)
	wait, err := registry.Register(ctx, id, opts.Name, opts.Payload, Options{
		Description:  opts.Description,
		TimeoutMs:    opts.TimeoutMs,
		DefaultValue: opts.DefaultValue,
		Validate:     opts.Validate,
	})
	if err != nil {
		return nil, err
	}
	url := ""
	if opts.URLBase != "" {
		url = fmt.Sprintf("%s/%s", opts.URLBase, id)
	}
	return &Webhook{ID: id, URL: url, wait: wait}, nil
}

// Resume resumes a pending hook by ID or webhook token, matching spec §6's
// `resumeHook(tokenOrId, payload)`.
func Resume(registry *Registry, tokenOrID string, payload any) error {
	return registry.Resume(tokenOrID, payload)
}
