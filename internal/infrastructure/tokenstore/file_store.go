package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"avena-triage-core/internal/domain"

	"github.com/rs/zerolog"
)

const (
	statusConnected = "connected"
	statusInvalid   = "invalid"
)

// record is the on-disk layout of one store's credential. One file per
// store id, so a corrupt entry never touches another store's record.
type record struct {
	Status     string            `json:"status"`
	Credential domain.Credential `json:"credential"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// FileStore is a file-backed TokenStore: one JSON file per store under a
// data directory. Writes to a store are serialized by a per-store lock so a
// refresh for store A never blocks a read for store B.
type FileStore struct {
	dir    string
	logger zerolog.Logger

	mu      sync.RWMutex // guards records and locks maps
	records map[string]*record
	locks   map[string]*sync.Mutex
}

// NewFileStore loads every record under dir, validating each independently.
// Records that fail to decode are dropped with a warning; loading never
// fails because of one bad file.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	s := &FileStore{
		dir:     dir,
		logger:  logger,
		records: make(map[string]*record),
		locks:   make(map[string]*sync.Mutex),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read token directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		storeID := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := s.readRecord(storeID)
		if err != nil {
			s.logger.Warn().Err(err).Str("store", storeID).Msg("Dropping unreadable credential record")
			continue
		}
		s.records[storeID] = rec
	}

	return s, nil
}

// Get implements ports.TokenStore.
func (s *FileStore) Get(storeID string) (*domain.Credential, error) {
	s.mu.RLock()
	rec, ok := s.records[storeID]
	s.mu.RUnlock()

	if !ok || rec.Status != statusConnected {
		return nil, domain.ErrNotConnected
	}
	if rec.Credential.Expired(time.Now()) {
		return nil, domain.ErrNotConnected
	}
	cred := rec.Credential
	return &cred, nil
}

// Put implements ports.TokenStore.
func (s *FileStore) Put(storeID string, cred *domain.Credential) error {
	lock := s.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	rec := &record{
		Status:     statusConnected,
		Credential: *cred,
		UpdatedAt:  time.Now(),
	}
	rec.Credential.StoreID = storeID

	if err := s.writeRecord(storeID, rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[storeID] = rec
	s.mu.Unlock()
	return nil
}

// Invalidate implements ports.TokenStore. The record stays on disk for
// audit but Get fails afterwards.
func (s *FileStore) Invalidate(storeID string) error {
	lock := s.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	rec, ok := s.records[storeID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotConnected
	}

	updated := *rec
	updated.Status = statusInvalid
	updated.UpdatedAt = time.Now()

	if err := s.writeRecord(storeID, &updated); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[storeID] = &updated
	s.mu.Unlock()
	return nil
}

// ListConnected implements ports.TokenStore.
func (s *FileStore) ListConnected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	ids := make([]string, 0, len(s.records))
	for id, rec := range s.records {
		if rec.Status == statusConnected && !rec.Credential.Expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *FileStore) storeLock(storeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[storeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[storeID] = lock
	}
	return lock
}

func (s *FileStore) recordPath(storeID string) string {
	return filepath.Join(s.dir, storeID+".json")
}

func (s *FileStore) readRecord(storeID string) (*record, error) {
	data, err := os.ReadFile(s.recordPath(storeID))
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.Credential.AccessToken == "" {
		return nil, fmt.Errorf("record has no access token")
	}
	if rec.Status != statusConnected && rec.Status != statusInvalid {
		return nil, fmt.Errorf("record has unknown status %q", rec.Status)
	}
	return &rec, nil
}

// writeRecord goes through a temp file and rename so a crash mid-write
// leaves the previous record intact.
func (s *FileStore) writeRecord(storeID string, rec *record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tmp := s.recordPath(storeID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, s.recordPath(storeID)); err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}
