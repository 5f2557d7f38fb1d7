package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/servercore/internal/rank"
	"github.com/pixil98/servercore/internal/state"
	"github.com/pixil98/servercore/internal/storage"
)

type StorageConfig struct {
	// Ranks holds one file per rank, loaded eagerly at startup.
	Ranks AssetConfig[*rank.Spec] `json:"ranks"`

	// Players holds one file per player, loaded lazily on first
	// reference.
	Players AssetConfig[*state.Spec] `json:"players"`

	// ManifestPath points at a JSON object of permission id -> enabled.
	// The enabled entries seed the default rank when no persisted one
	// exists.
	ManifestPath string `json:"manifest_path,omitempty"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Ranks.Validate("ranks"))
	el.Add(c.Players.Validate("players"))
	if c.ManifestPath != "" {
		if _, err := os.Stat(c.ManifestPath); err != nil {
			el.Add(fmt.Errorf("manifest: invalid path %q: %w", c.ManifestPath, err))
		}
	}
	return el.Err()
}

func (c *StorageConfig) BuildRankStore() (*storage.FileStore[*rank.Spec], error) {
	return storage.NewFileStore[*rank.Spec](c.Ranks.Path)
}

func (c *StorageConfig) BuildPlayerStore() (*storage.FileStore[*state.Spec], error) {
	return storage.NewLazyFileStore[*state.Spec](c.Players.Path)
}

// LoadManifest reads the permission manifest, if configured, and returns
// the enabled entries.
func (c *StorageConfig) LoadManifest() ([]rank.Permission, error) {
	if c.ManifestPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var entries map[string]bool
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	perms := make([]rank.Permission, 0, len(entries))
	for id, enabled := range entries {
		if !enabled {
			continue
		}
		p, err := rank.ParsePermission(id)
		if err != nil {
			return nil, fmt.Errorf("manifest permission %q: %w", id, err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}
