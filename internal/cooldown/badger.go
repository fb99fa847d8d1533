package cooldown

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// BadgerState keeps client state in a small on-disk BadgerDB.
type BadgerState struct {
	db *badger.DB
}

// DefaultStateDir is ~/.local/state/guestbook, falling back to the temp dir.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "guestbook")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "guestbook")
	}
	return filepath.Join(home, ".local", "state", "guestbook")
}

func OpenBadgerState(dir string) (*BadgerState, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &BadgerState{db: db}, nil
}

func (s *BadgerState) Close() error {
	return s.db.Close()
}

func (s *BadgerState) GetInt(key string) (int64, bool, error) {
	var value int64
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			parsed, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt value for %s: %w", key, err)
			}
			value = parsed
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false, err
	}
	return value, found, nil
}

func (s *BadgerState) SetInt(key string, value int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(strconv.FormatInt(value, 10)))
	})
}

// Delete removes a key; used by "submit --reset-cooldown".
func (s *BadgerState) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
