package main

import (
	"context"
	"fmt"

	"go-co2-emissions-dashboard/internal/config"
	"go-co2-emissions-dashboard/internal/countries"
	"go-co2-emissions-dashboard/internal/dataset"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/views"
)

// loadDashboard loads the configured dataset once and returns a dashboard over it.
func loadDashboard(ctx context.Context, cfg config.Config) (*views.Dashboard, func(), error) {
	source, backends, err := dataset.NewSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = backends.Close() }

	provider := dataset.NewProvider(source, nil)
	if _, err := provider.Reload(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load dataset from %s: %w", source.Name(), err)
	}

	aliases := countries.Default()
	if cfg.CountryAliasesFile != "" {
		if aliases, err = countries.Load(cfg.CountryAliasesFile); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return views.NewDashboard(provider, aliases, cfg.TopN), cleanup, nil
}

// resolveSelection applies flag values over the configured preset. A zero year
// or empty metric keeps the preset.
func resolveSelection(cfg config.Config, tbl *emissions.Table, year int, metric string) (views.Selection, error) {
	defMetric, err := emissions.ParseMetric(cfg.DefaultMetric)
	if err != nil {
		return views.Selection{}, err
	}
	def := views.DefaultSelection(tbl, cfg.DefaultYear, defMetric)
	yearRaw := ""
	if year != 0 {
		yearRaw = fmt.Sprint(year)
	}
	return views.ParseSelection(yearRaw, metric, def)
}
