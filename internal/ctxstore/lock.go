package ctxstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// lock acquires the store's exclusive lock file. The lock is scoped to one
// read-modify-write cycle and must be released before any external
// collaborator is invoked. Acquisition never blocks: if the lock file
// already exists the caller gets ErrLocked immediately.
func (s *Store) lock() (unlock func(), err error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create context dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(lockPath) }, nil
}
