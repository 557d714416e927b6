package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time interface checks.
var (
	_ Store    = (*MemStore)(nil)
	_ Searcher = (*MemStore)(nil)
)

// MemStore is an in-memory Store and Searcher. Search is a case-insensitive
// substring match over completed transcripts. All methods are safe for
// concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]*Session)}
}

// CreateSession implements Store.
func (m *MemStore) CreateSession(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// GetSession implements Store.
func (m *MemStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

// ListSessions implements Store.
func (m *MemStore) ListSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Session
	for _, sess := range m.sessions {
		if sess.OwnerID != ownerID {
			continue
		}
		cp := cloneSession(sess)
		cp.Fragments = nil
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateSession implements Store.
func (m *MemStore) UpdateSession(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	cp := cloneSession(sess)
	cp.Fragments = cur.Fragments
	m.sessions[sess.ID] = cp
	return nil
}

// AppendFragment implements Store.
func (m *MemStore) AppendFragment(ctx context.Context, sessionID string, frag Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Fragments = append(sess.Fragments, frag)
	return nil
}

// Search implements Searcher.
func (m *MemStore) Search(ctx context.Context, ownerID, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var results []SearchResult
	for _, sess := range m.sessions {
		if sess.OwnerID != ownerID || sess.Status != StatusCompleted {
			continue
		}
		if !strings.Contains(strings.ToLower(sess.Transcript), needle) {
			continue
		}
		results = append(results, SearchResult{
			SessionID: sess.ID,
			Title:     sess.Title,
			Snippet:   snippet(sess.Transcript, needle),
			Score:     1,
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// snippet returns up to 160 characters of transcript around the first match.
func snippet(transcript, needle string) string {
	idx := strings.Index(strings.ToLower(transcript), needle)
	if idx < 0 {
		idx = 0
	}
	start := idx - 60
	if start < 0 {
		start = 0
	}
	end := start + 160
	if end > len(transcript) {
		end = len(transcript)
	}
	return transcript[start:end]
}

func cloneSession(sess *Session) *Session {
	cp := *sess
	cp.Fragments = make([]Fragment, len(sess.Fragments))
	copy(cp.Fragments, sess.Fragments)
	return &cp
}
