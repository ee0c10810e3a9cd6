package ops

import (
	"context"
	"encoding/json"

	"github.com/hpungsan/qet/internal/settings"
)

// GetSettings returns the effective settings (stored merged over defaults).
func (o *Orchestrator) GetSettings(ctx context.Context) (settings.Settings, error) {
	return o.settings.Get(ctx)
}

// UpdateSettings validates raw and persists it verbatim. A partial object
// replaces the whole record; omitted fields read back as defaults.
func (o *Orchestrator) UpdateSettings(ctx context.Context, raw json.RawMessage) (settings.Settings, error) {
	if err := settings.Validate(raw); err != nil {
		return settings.Settings{}, err
	}
	if err := o.settings.SetRaw(ctx, raw); err != nil {
		return settings.Settings{}, err
	}
	o.log.Info().Msg("settings updated")
	return o.settings.Get(ctx)
}

// ResetSettings restores the install-time defaults.
func (o *Orchestrator) ResetSettings(ctx context.Context) (settings.Settings, error) {
	s, err := o.settings.Reset(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	o.log.Info().Msg("settings reset to defaults")
	return s, nil
}

// EnsureDefaults writes default settings on first start.
func (o *Orchestrator) EnsureDefaults(ctx context.Context) error {
	created, err := o.settings.EnsureDefaults(ctx)
	if err != nil {
		return err
	}
	if created {
		o.log.Info().Msg("default settings installed")
	}
	return nil
}
