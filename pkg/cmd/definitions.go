package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/formation/pkg/definition"
)

// Definitions bundles the loaders reading one configuration directory through a shared cache.
type Definitions struct {
	Workflows *definition.WorkflowLoader
	Forms     *definition.FormConfigLoader
	Cache     *definition.Cache

	watcher *definition.Watcher
}

// NewDefinitions creates loaders for the workflows/ and forms/ directories under configDir.
// With watch set, file changes evict the affected cache entries until Close.
func NewDefinitions(ctx context.Context, logger *slog.Logger, configDir string, watch bool) (*Definitions, error) {
	workflows, forms := definition.DirSources(configDir)
	cache := definition.NewCache()

	defs := &Definitions{
		Workflows: definition.NewWorkflowLoader(workflows, cache, logger),
		Forms:     definition.NewFormConfigLoader(forms, cache, logger),
		Cache:     cache,
	}

	if !watch {
		return defs, nil
	}

	watcher, err := definition.NewWatcher(configDir, cache, logger)
	if err != nil {
		return nil, err
	}

	watcher.Start(ctx)
	defs.watcher = watcher

	return defs, nil
}

func (d *Definitions) Close() error {
	if d.watcher == nil {
		return nil
	}

	return d.watcher.Stop()
}
