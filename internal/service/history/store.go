package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/domain/repository"
)

// ErrUnavailable is returned when the backing loader fails. Callers may
// retry or proceed with an empty window (degraded but non-fatal).
var ErrUnavailable = errors.New("history unavailable")

type entry struct {
	window models.HistoryWindow
	exp    time.Time
}

// Store caches per-user history windows with a TTL, populating on miss via
// the injected loader. Population and invalidation serialize per user key;
// cached windows are replaced atomically and never mutated in place, so
// concurrent readers always see a consistent window.
//
// The store does no write-through: callers must Invalidate after recording
// a new transaction so the next Get reflects it.
type Store struct {
	loader     repository.HistoryLoader
	ttl        time.Duration
	maxEntries int

	mu sync.RWMutex
	m  map[string]entry

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex
}

// NewStore creates a history store.
func NewStore(loader repository.HistoryLoader, maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		loader:     loader,
		ttl:        ttl,
		maxEntries: maxEntries,
		m:          make(map[string]entry),
		keys:       make(map[string]*sync.Mutex),
	}
}

// Get returns the user's window, cache-first. On miss it loads, normalizes
// (newest-first, deduplicated, capped), and caches with the TTL.
func (s *Store) Get(ctx context.Context, userID string) (models.HistoryWindow, error) {
	s.mu.RLock()
	e, ok := s.m[userID]
	s.mu.RUnlock()
	if ok && time.Now().Before(e.exp) {
		return e.window, nil
	}

	lock := s.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have populated while we waited.
	s.mu.RLock()
	e, ok = s.m[userID]
	s.mu.RUnlock()
	if ok && time.Now().Before(e.exp) {
		return e.window, nil
	}

	txs, err := s.loader.Load(ctx, userID, s.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	w := normalize(txs, s.maxEntries)

	s.mu.Lock()
	s.m[userID] = entry{window: w, exp: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return w, nil
}

// Invalidate drops the user's cached window. Must be called right after a
// new transaction is recorded.
func (s *Store) Invalidate(userID string) {
	lock := s.keyLock(userID)
	lock.Lock()
	s.mu.Lock()
	delete(s.m, userID)
	s.mu.Unlock()
	lock.Unlock()
}

// Len returns the number of cached windows (expired entries included until
// their next Get).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *Store) keyLock(userID string) *sync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	l, ok := s.keys[userID]
	if !ok {
		l = &sync.Mutex{}
		s.keys[userID] = l
	}
	return l
}

// normalize enforces the window invariant: timestamp-descending order, no
// duplicate IDs, at most max entries.
func normalize(txs []models.Transaction, max int) models.HistoryWindow {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})
	seen := make(map[string]bool, len(txs))
	out := make(models.HistoryWindow, 0, len(txs))
	for _, tx := range txs {
		if tx.ID != "" && seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		out = append(out, tx)
		if len(out) == max {
			break
		}
	}
	return out
}
