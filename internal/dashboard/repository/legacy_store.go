package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
)

// LegacyStore reads the flat key-value state file that predates the embedded
// database. It exists only to be drained by the startup migration.
type LegacyStore interface {
	// Favorites returns the legacy favorite-code list, and whether the key
	// is present at all.
	Favorites() ([]string, bool, error)
	// Tabs returns the legacy tab list, and whether the key is present.
	Tabs() ([]entity.Tab, bool, error)
	// DeleteKey removes one key, deleting the file once no keys remain.
	DeleteKey(key string) error
}

// NewLegacyStore opens the legacy flat store at path. A missing file is a
// valid, empty store.
func NewLegacyStore(path string) LegacyStore {
	return &legacyFileStore{path: path}
}

type legacyFileStore struct {
	path string
}

func (s *legacyFileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, storageRead("read legacy state", err)
	}
	keys := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &keys); err != nil {
			return nil, storageRead("decode legacy state", err)
		}
	}
	return keys, nil
}

func (s *legacyFileStore) Favorites() ([]string, bool, error) {
	keys, err := s.load()
	if err != nil {
		return nil, false, err
	}
	raw, ok := keys[common.LegacyKeyFavorites]
	if !ok {
		return nil, false, nil
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		return nil, true, storageRead("decode legacy favorites", err)
	}
	return codes, true, nil
}

func (s *legacyFileStore) Tabs() ([]entity.Tab, bool, error) {
	keys, err := s.load()
	if err != nil {
		return nil, false, err
	}
	raw, ok := keys[common.LegacyKeyTabs]
	if !ok {
		return nil, false, nil
	}
	var tabs []entity.Tab
	if err := json.Unmarshal(raw, &tabs); err != nil {
		return nil, true, storageRead("decode legacy tabs", err)
	}
	return tabs, true, nil
}

func (s *legacyFileStore) DeleteKey(key string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keys[key]; !ok {
		return nil
	}
	delete(keys, key)

	if len(keys) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return storageWrite(fmt.Sprintf("remove legacy state after %s", key), err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return storageWrite("encode legacy state", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return storageWrite("rewrite legacy state", err)
	}
	return nil
}
