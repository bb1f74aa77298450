// Package config assembles the engine's collaborators for the CLI:
// logger, profile registry and reporter configuration.
package config

import (
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/internal/report"
	"bank-statement-engine/pkg/logger"
)

// CreateLogger builds the CLI logger, at debug level when verbose.
func CreateLogger(verbose bool) (logger.Logger, error) {
	cfg := logger.DefaultConfig()
	if verbose {
		cfg = logger.DebugConfig()
	}
	return logger.NewLogger(cfg)
}

// CreateRegistry builds the profile registry: built-in profiles plus any
// descriptors from the given directory.
func CreateRegistry(log logger.Logger, profileDir string) (*profile.Registry, error) {
	registry, err := profile.NewDefaultRegistry(log)
	if err != nil {
		return nil, err
	}
	if profileDir != "" {
		if err := registry.LoadDir(profileDir); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// CreateReporterConfig maps the CLI --report flag to reporter options.
func CreateReporterConfig(format string) *report.Config {
	cfg := report.DefaultConfig()
	if format == "json" {
		cfg.Format = report.FormatJSON
	}
	return cfg
}
