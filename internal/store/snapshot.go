package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Snapshot loads both record collections of owner concurrently.
func (s *Store) Snapshot(ctx context.Context, owner string) (Snapshot, error) {
	snap := Snapshot{OwnerID: owner}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.ListJournalEntries(gctx, owner)
		snap.Text = text
		return err
	})
	g.Go(func() error {
		voice, err := s.ListVoiceEntries(gctx, owner)
		snap.Voice = voice
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", owner, err)
	}
	snap.LoadedAt = s.now()
	return snap, nil
}
