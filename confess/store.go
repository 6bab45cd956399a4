package confess

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/sys"
)

// journalFile is the part of *os.File the store writes through.
type journalFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Store is the ordered, append-only collection of confessions with its
// durable journal. Records are never mutated or removed once appended.
type Store struct {
	mu      sync.RWMutex
	path    string
	file    journalFile
	size    int64
	broken  error
	records []Confession
	byAnon  map[string]int
	closed  bool
}

// OpenStore loads the journal at path into memory. A missing file is
// created empty. An unreadable or corrupt file is kept aside, logged, and
// replaced by an empty journal so the bot can keep accepting confessions.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	s := &Store{path: path, byAnon: make(map[string]int)}
	if err := s.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat storage file: %w", err)
	}
	s.file = f
	s.size = info.Size()
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeSnapshot(s.path, nil); err != nil {
			return fmt.Errorf("create storage file: %w", err)
		}
		sys.LogStore(sys.MsgStoreCreated, s.path)
		return nil
	}

	var res loadResult
	if err == nil {
		res, err = decodeJournal(data)
	}
	if err != nil {
		sys.LogError(sys.MsgStoreCorrupt, s.path, err)
		if len(data) > 0 {
			if name, qErr := quarantine(s.path, data); qErr == nil {
				sys.LogStore(sys.MsgStoreQuarantined, name)
			}
		}
		if err := writeSnapshot(s.path, nil); err != nil {
			return fmt.Errorf("reset storage file: %w", err)
		}
		return nil
	}

	for _, rec := range res.records {
		if _, dup := s.byAnon[rec.AnonymousID]; dup {
			sys.LogWarn(sys.MsgStoreDuplicateOnLoad, rec.AnonymousID)
			continue
		}
		s.byAnon[rec.AnonymousID] = len(s.records)
		s.records = append(s.records, rec)
	}

	if res.legacy {
		sys.LogStore(sys.MsgStoreMigrated, len(s.records))
	}
	if res.torn {
		sys.LogWarn(sys.MsgStoreTornTail, s.path)
	}
	if res.rewrite || len(s.records) != len(res.records) {
		if err := writeSnapshot(s.path, s.records); err != nil {
			return fmt.Errorf("rewrite storage file: %w", err)
		}
	}

	sys.LogStore(sys.MsgStoreLoaded, len(s.records), s.path)
	return nil
}

// Append writes rec to the journal and, only once it is durable, makes it
// visible in memory. The caller builds the complete record.
func (s *Store) Append(rec Confession) (Confession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Confession{}, ErrStoreClosed
	}
	if s.broken != nil {
		return Confession{}, fmt.Errorf("%w: %v", ErrStoreBroken, s.broken)
	}
	if _, dup := s.byAnon[rec.AnonymousID]; dup {
		return Confession{}, fmt.Errorf("%w: %s", ErrDuplicateID, rec.AnonymousID)
	}

	line, err := encodeLine(rec)
	if err != nil {
		return Confession{}, fmt.Errorf("encode confession: %w", err)
	}
	if _, err := s.file.Write(line); err != nil {
		return Confession{}, s.rollback(fmt.Errorf("write confession: %w", err))
	}
	if err := s.file.Sync(); err != nil {
		return Confession{}, s.rollback(fmt.Errorf("sync confession: %w", err))
	}

	s.size += int64(len(line))
	s.byAnon[rec.AnonymousID] = len(s.records)
	s.records = append(s.records, rec)
	return rec, nil
}

// rollback cuts the journal back to the last complete record after a failed
// append, so a later append does not land behind a partial line. If the file
// cannot be cut, the store refuses further writes.
func (s *Store) rollback(cause error) error {
	err := s.file.Truncate(s.size)
	if err == nil {
		err = s.file.Sync()
	}
	if err != nil {
		s.broken = err
		sys.LogError(sys.MsgStoreRollbackFail, s.path, err)
	}
	return cause
}

// FindByAnonymousID returns the first record with the given public ID.
func (s *Store) FindByAnonymousID(id string) (Confession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byAnon[id]
	if !ok {
		return Confession{}, false
	}
	return s.records[idx], true
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) CountForSubmitter(id snowflake.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if rec.SubmitterID == id {
			n++
		}
	}
	return n
}

func (s *Store) CountOnOrAfter(boundary time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if !rec.CreatedAt.Before(boundary) {
			n++
		}
	}
	return n
}

func (s *Store) UniqueSubmitters() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[snowflake.ID]struct{}, len(s.records))
	for _, rec := range s.records {
		seen[rec.SubmitterID] = struct{}{}
	}
	return len(seen)
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []Confession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Confession, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) First() (Confession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return Confession{}, false
	}
	return s.records[0], true
}

func (s *Store) Latest() (Confession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return Confession{}, false
	}
	return s.records[len(s.records)-1], true
}

// LastInternalID is used to seed the ID generator after a restart.
func (s *Store) LastInternalID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	for _, rec := range s.records {
		if rec.InternalID > last {
			last = rec.InternalID
		}
	}
	return last
}

func (s *Store) Path() string {
	return s.path
}

// Healthy reports whether the journal is still open for writes.
func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.broken == nil && s.file != nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
