package columnar

import (
	"context"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/chainkit/blockdb"
)

// ReadBin implements blockdb.SettingsStore.
func (s *Store) ReadBin(ctx context.Context, key string) ([]byte, error) {
	return s.read(ctx, ColSettings, []byte(key))
}

// WriteBin implements blockdb.SettingsStore. Settings overwrite in
// place, unlike the content-addressed columns.
func (s *Store) WriteBin(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, ColSettings, []byte(key), value)
}

// Exists implements blockdb.SettingsStore.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.exists(ctx, ColSettings, []byte(key))
}

// SettingKeys implements blockdb.SettingsStore.
func (s *Store) SettingKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.Iter(ctx, uint8(ColSettings), func(key, _ []byte) error {
		if !utf8.Valid(key) {
			return errors.Wrapf(blockdb.ErrInvalidKey, "key %x", key)
		}
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		return nil, &blockdb.EngineError{Column: ColSettings.String(), Err: err}
	}
	return keys, nil
}
