package sales

import "sync"

// Storage is the persistence gateway for the store. Load returns a nil
// snapshot and no error when nothing has been saved yet.
type Storage interface {
	Load() (*Snapshot, error)
	Save(snapshot Snapshot) error
}

// DefaultStorageKey names the blob the store reads and writes.
const DefaultStorageKey = "scaleTracker"

// LocalStorage provides an in-memory implementation of Storage.
type LocalStorage struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewLocalStorage instantiates a new, empty LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Load returns a copy of the stored snapshot, or nil if none was saved.
func (l *LocalStorage) Load() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snap == nil {
		return nil, nil
	}
	c := l.snap.Clone()
	return &c, nil
}

// Save replaces the stored snapshot with a copy of snapshot.
func (l *LocalStorage) Save(snapshot Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := snapshot.Clone()
	l.snap = &c
	return nil
}
