package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeu5/combat-rl/storage"
)

// OpenStore initializes the episode store selected by f.Store. It returns a nil
// store for "none".
func OpenStore(ctx context.Context, f *Flags) (storage.Store, error) {
	var s storage.Store
	switch f.Store {
	case "none", "":
		return nil, nil
	case "memory":
		s = storage.NewMemoryStore()
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(f.StorePath), 0755); err != nil {
			return nil, err
		}
		s = storage.NewSQLiteStore(f.StorePath)
	default:
		return nil, fmt.Errorf("unknown store %q", f.Store)
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s store: %w", f.Store, err)
	}
	return s, nil
}
