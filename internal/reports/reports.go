// Package reports manages the lifecycle of opened search-term reports. Each
// open report is parsed and normalized once, cached under a TTL-bearing
// handle, and evicted after idle expiry so long-running servers do not
// accumulate row data.
package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/ingest"
)

// Report is an in-memory normalized report paired with metadata for TTL eviction.
type Report struct {
	ID        string
	Path      string
	Headers   []string
	Schema    analysis.Schema
	Rows      []analysis.CanonicalRow
	LoadedAt  time.Time
	ExpiresAt time.Time
	mu        sync.RWMutex
}

// ReportGate coordinates capacity for open report handles (backed by runtime.Controller).
type ReportGate interface {
	AcquireReport(ctx context.Context) error
	ReleaseReport()
}

// PathValidator abstracts filesystem path validation. Implementations return
// a canonical absolute path if allowed, or an error when denied.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// OpenOptions bound ingestion and steer normalization for a single open.
type OpenOptions struct {
	MaxRows      int
	ExtraAliases map[string][]string
}

// ErrHandleNotFound indicates an unknown or expired handle ID.
var ErrHandleNotFound = errors.New("reports: handle not found")

// Manager provides lifecycle hooks for opening and closing reports and a TTL handle cache.
type Manager struct {
	mu           sync.RWMutex
	handles      map[string]*Report
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         ReportGate
	validator    PathValidator
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
}

// NewManager constructs a lifecycle manager with a TTL-bearing handle cache.
// Pass ttl or cleanupEvery <= 0 to use defaults from config.
// Gate can be nil for tests; clock defaults to time.Now when nil.
func NewManager(ttl, cleanupEvery time.Duration, gate ReportGate, clock func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultReportIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultReportCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		handles:      make(map[string]*Report),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		stopCh:       make(chan struct{}),
	}
}

// SetValidator installs the path allow-list validator consulted by Open.
func (m *Manager) SetValidator(v PathValidator) {
	m.validator = v
}

// Start launches periodic eviction of expired handles.
func (m *Manager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops all open handles.
func (m *Manager) Close(ctx context.Context) error {
	close(m.stopCh)
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.handles {
		delete(m.handles, id)
		if m.gate != nil {
			m.gate.ReleaseReport()
		}
	}
	return nil
}

// Open reads and normalizes the report at path, registers a TTL-bearing
// handle, and returns its ID. The manager enforces open-report capacity via
// the gate when provided and consults the path validator when installed.
func (m *Manager) Open(ctx context.Context, path string, opts OpenOptions) (string, error) {
	if err := m.acquire(ctx); err != nil {
		return "", err
	}

	if m.validator != nil {
		canonical, err := m.validator.ValidateOpenPath(path)
		if err != nil {
			m.release()
			return "", err
		}
		path = canonical
	}

	f, err := os.Open(path)
	if err != nil {
		m.release()
		return "", fmt.Errorf("reports: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	tbl, err := ingest.Read(filepath.Base(path), f, ingest.Options{MaxRows: opts.MaxRows})
	if err != nil {
		m.release()
		return "", err
	}

	return m.adopt(path, tbl, opts)
}

// Adopt normalizes an already-ingested table and registers it as a managed
// handle. Used for HTTP uploads where the bytes never touch the filesystem.
func (m *Manager) Adopt(ctx context.Context, name string, tbl ingest.Table, opts OpenOptions) (string, error) {
	if err := m.acquire(ctx); err != nil {
		return "", err
	}
	return m.adopt(name, tbl, opts)
}

func (m *Manager) adopt(path string, tbl ingest.Table, opts OpenOptions) (string, error) {
	rows, schema, err := analysis.Normalize(tbl.Headers, tbl.Records, analysis.NormalizeOptions{
		ExtraAliases: opts.ExtraAliases,
	})
	if err != nil {
		m.release()
		return "", err
	}

	loadedAt := m.clock()
	r := &Report{
		ID:        uuid.NewString(),
		Path:      path,
		Headers:   tbl.Headers,
		Schema:    schema,
		Rows:      rows,
		LoadedAt:  loadedAt,
		ExpiresAt: loadedAt.Add(m.ttl),
	}

	m.mu.Lock()
	m.handles[r.ID] = r
	m.mu.Unlock()

	return r.ID, nil
}

// Get returns the handle when present and refreshes its TTL.
func (m *Manager) Get(id string) (*Report, bool) {
	m.mu.RLock()
	r, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	// Refresh TTL on access (idle timeout semantics)
	now := m.clock()
	r.mu.Lock()
	r.ExpiresAt = now.Add(m.ttl)
	r.mu.Unlock()
	return r, true
}

// WithRows obtains a shared read lock for the handle and executes fn over
// the normalized rows.
func (m *Manager) WithRows(id string, fn func([]analysis.CanonicalRow, analysis.Schema) error) error {
	r, ok := m.Get(id)
	if !ok {
		return ErrHandleNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.Rows, r.Schema)
}

// CloseHandle removes a handle by ID, releasing capacity via the gate.
func (m *Manager) CloseHandle(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrHandleNotFound
	}
	m.release()
	return nil
}

// EvictExpired scans for expired handles and drops them.
func (m *Manager) EvictExpired() {
	now := m.clock()
	var expiredIDs []string

	m.mu.RLock()
	for id, r := range m.handles {
		if r.Expired(now) {
			expiredIDs = append(expiredIDs, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expiredIDs {
		m.mu.Lock()
		_, ok := m.handles[id]
		if ok {
			delete(m.handles, id)
		}
		m.mu.Unlock()
		if ok {
			m.release()
		}
	}
}

// Count returns the current number of cached handles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireReport(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseReport()
}

// Expired reports whether the handle has reached its TTL.
func (r *Report) Expired(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return now.After(r.ExpiresAt)
}
