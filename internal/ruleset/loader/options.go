package loader

import (
	"fmt"

	"github.com/cory-johannsen/modstack/internal/config"
	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// OptionsFromConfig converts the application configuration into loader options.
//
// Precondition: cfg passed Validate.
// Postcondition: Returns Options owning a copy of cfg.Mods.Active.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	threshold, err := ruleerr.ParseSeverity(cfg.Loader.ValidationThreshold)
	if err != nil {
		return Options{}, fmt.Errorf("loader.validation_threshold: %w", err)
	}
	return Options{
		DataDir: cfg.Mods.DataDir,
		Active:  append([]string(nil), cfg.Mods.Active...),
		Engine: mod.Engine{
			Name:    cfg.Engine.Name,
			Version: mod.ParseVersion(cfg.Engine.Version),
		},
		Debug:         cfg.Loader.Debug,
		Threshold:     threshold,
		MaxLinkErrors: cfg.Loader.MaxLinkErrors,
		Limits: namespace.Limits{
			UnitSize: cfg.Namespace.UnitSize,
			Min:      cfg.Namespace.ReservedSpaceMin,
			Max:      cfg.Namespace.ReservedSpaceMax,
		},
	}, nil
}
