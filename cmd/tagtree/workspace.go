package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/tagtree/internal/collector"
	"github.com/kokistudios/tagtree/internal/note"
	"github.com/kokistudios/tagtree/internal/state"
	"github.com/kokistudios/tagtree/internal/store"
	"github.com/kokistudios/tagtree/internal/structure"
	"github.com/kokistudios/tagtree/internal/ui"
	"github.com/kokistudios/tagtree/internal/vault"
)

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("tagtree not initialized, run 'tagtree init' first: %w", err)
	}
	if !verbose {
		ui.SetLevel(s.Config.Log.Level)
	}
	return s, nil
}

// workspace bundles one vault with its collector and tag structure.
type workspace struct {
	store     *store.Store
	vault     *vault.Vault
	collector *collector.Collector
	structure *structure.Store
	logger    *log.Logger
}

func openWorkspace(ctx context.Context) (*workspace, error) {
	s, err := loadStore()
	if err != nil {
		return nil, err
	}
	root, err := s.VaultPath(vaultFlag)
	if err != nil {
		return nil, err
	}

	logger := ui.LoggerFrom(ctx)
	p := ui.NewProgress(logger)
	spin := ui.NewSpinner("Indexing " + root)
	v, err := vault.Open(ctx, root, logger)
	spin.Stop()
	if err != nil {
		return nil, err
	}
	p.Done(fmt.Sprintf("indexed %d notes", len(v.Files())))

	c := collector.New(v, s.Config.Vault.ExtraField, logger)
	return &workspace{
		store:     s,
		vault:     v,
		collector: c,
		structure: structure.New(s.StructurePath(v.Root), c, structure.Options{
			Prune:  s.Config.Tree.PruneOrphans,
			Logger: logger,
		}),
		logger: logger,
	}, nil
}

func (w *workspace) openState(ctx context.Context) (state.Store, error) {
	return openState(ctx, w.store, w.logger)
}

func openState(ctx context.Context, s *store.Store, logger *log.Logger) (state.Store, error) {
	cfg := s.Config.State
	st, err := state.Open(ctx, state.Config{
		Backend:     cfg.Backend,
		Key:         cfg.Key,
		Path:        s.StatePath(),
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open visibility state: %w", err)
	}
	return st, nil
}

// normalizeArg accepts tags written with or without the leading #.
func normalizeArg(s string) string {
	return note.NormalizeTag(s)
}
