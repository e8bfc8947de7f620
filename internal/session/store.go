package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxRetainedOnQuota is how many of the most recent sessions survive when the
// backend rejects a save.
const maxRetainedOnQuota = 5

// Store owns the ordered collection of fridge sessions and the active-session
// pointer. It is the single writer: everything else reads sessions by id or
// receives a copy. Every mutation re-serializes the full collection to the
// persistence backend.
type Store struct {
	mu       sync.Mutex
	sessions []FridgeSession // newest first
	activeID string
	persist  Persistence
	logger   *zap.SugaredLogger
}

// NewStore loads any previously persisted history and returns a ready store.
// A load or parse failure is treated as empty history, never as fatal.
func NewStore(ctx context.Context, persist Persistence, logger *zap.SugaredLogger) *Store {
	s := &Store{persist: persist, logger: logger}

	data, err := persist.Load(ctx)
	if err != nil {
		logger.Errorw("failed to load session history, starting empty", "error", err)
		return s
	}
	if len(data) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s.sessions); err != nil {
		logger.Errorw("failed to parse session history, starting empty", "error", err)
		s.sessions = nil
	}
	return s
}

// newSessionID derives a unique id from the creation time.
func newSessionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Create inserts a new session at the front of the collection with default
// preferences and no recipes, and makes it the active session.
func (s *Store) Create(ctx context.Context, thumbnail string, ingredients []Ingredient) FridgeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := FridgeSession{
		ID:             newSessionID(now),
		Timestamp:      now.UnixMilli(),
		ImageThumbnail: thumbnail,
		Ingredients:    ingredients,
		Recipes:        []Recipe{},
		Preferences:    DefaultPreferences(),
	}

	s.sessions = append([]FridgeSession{sess}, s.sessions...)
	s.activeID = sess.ID
	s.save(ctx)
	return sess
}

// Update is a partial merge into the session matching id. Fields left nil are
// untouched. A missing id is a no-op.
type Update struct {
	Recipes     []Recipe
	Preferences *Preferences
}

// UpdateSession merges the given fields into the session matching id.
func (s *Store) UpdateSession(ctx context.Context, id string, upd Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID != id {
			continue
		}
		if upd.Recipes != nil {
			s.sessions[i].Recipes = upd.Recipes
		}
		if upd.Preferences != nil {
			s.sessions[i].Preferences = *upd.Preferences
		}
		s.save(ctx)
		return
	}
}

// Delete removes the session matching id. Deleting the active session clears
// the active pointer.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.activeID == id {
				s.activeID = ""
			}
			s.save(ctx)
			return
		}
	}
}

// List returns the sessions newest first. The returned slice is a copy.
func (s *Store) List() []FridgeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FridgeSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Get returns a copy of the session matching id.
func (s *Store) Get(id string) (FridgeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return s.sessions[i], true
		}
	}
	return FridgeSession{}, false
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ActiveID returns the active session id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active session.
func (s *Store) Active() (FridgeSession, bool) {
	id := s.ActiveID()
	if id == "" {
		return FridgeSession{}, false
	}
	return s.Get(id)
}

// SetActive points the store at an existing session. The pointer must always
// reference a stored session, so an unknown id is rejected.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.activeID = id
			return nil
		}
	}
	return fmt.Errorf("session %s not found", id)
}

// ClearActive drops the active pointer.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// save re-serializes the full collection. On a save failure it evicts down to
// the most recent sessions and retries once; if the retry also fails the
// in-memory mutation stands and persistence is best effort.
func (s *Store) save(ctx context.Context) {
	data, err := json.Marshal(s.sessions)
	if err != nil {
		s.logger.Errorw("failed to serialize session history", "error", err)
		return
	}

	if err := s.persist.Save(ctx, data); err == nil {
		return
	} else if len(s.sessions) <= maxRetainedOnQuota {
		s.logger.Errorw("failed to persist session history", "error", err)
		return
	}

	s.logger.Warnw("storage rejected save, pruning oldest sessions", "retained", maxRetainedOnQuota)
	s.sessions = s.sessions[:maxRetainedOnQuota]

	// The active pointer must keep referencing a stored session.
	if s.activeID != "" {
		found := false
		for i := range s.sessions {
			if s.sessions[i].ID == s.activeID {
				found = true
				break
			}
		}
		if !found {
			s.activeID = ""
		}
	}

	data, err = json.Marshal(s.sessions)
	if err != nil {
		s.logger.Errorw("failed to serialize pruned session history", "error", err)
		return
	}
	if err := s.persist.Save(ctx, data); err != nil {
		s.logger.Errorw("failed to persist session history after pruning", "error", err)
	}
}
