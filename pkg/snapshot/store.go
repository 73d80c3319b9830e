// Package snapshot persists engine snapshots by name so a run can be
// restored into any backend.
package snapshot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

// Snapshot is one stored engine image. Data is the engine's own encoding.
type Snapshot struct {
	Name     string
	Engine   string
	BookSize int
	Data     []byte
}

type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	// Load returns ErrNotFound when nothing is stored under name.
	Load(ctx context.Context, name string) (Snapshot, error)
	Close() error
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save snapshots eng and stores it under name.
func Save(ctx context.Context, store Store, name string, eng core.Engine) error {
	data, err := eng.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot engine: %w", err)
	}

	stats := eng.Stats()
	size, _ := strconv.Atoi(stats["book_size"])
	snap := Snapshot{Name: name, Engine: stats["engine"], BookSize: size, Data: data}
	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot %q: %w", name, err)
	}

	zap.S().Infow("snapshot saved", "name", name, "engine", snap.Engine, "book_size", size, "bytes", len(data))
	return nil
}

// Restore loads the snapshot stored under name into eng.
func Restore(ctx context.Context, store Store, name string, eng core.Engine) error {
	snap, err := store.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load snapshot %q: %w", name, err)
	}
	if err := eng.LoadSnapshot(snap.Data); err != nil {
		return fmt.Errorf("restore snapshot %q: %w", name, err)
	}

	zap.S().Infow("snapshot restored", "name", name, "from_engine", snap.Engine, "into_engine", eng.Stats()["engine"])
	return nil
}
