package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryPersist is an in-memory Persistence with switchable failures.
type memoryPersist struct {
	data     []byte
	failOnce bool
	failAll  bool
	saves    int
}

func (m *memoryPersist) Load(_ context.Context) ([]byte, error) {
	return m.data, nil
}

func (m *memoryPersist) Save(_ context.Context, data []byte) error {
	m.saves++
	if m.failAll {
		return errors.New("storage full")
	}
	if m.failOnce {
		m.failOnce = false
		return errors.New("storage full")
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func newTestStore(t *testing.T) (*Store, *memoryPersist) {
	t.Helper()
	p := &memoryPersist{}
	return NewStore(context.Background(), p, zap.NewNop().Sugar()), p
}

func milkIngredients() []Ingredient {
	return []Ingredient{{Name: "Milk", Quantity: "1L", Category: "Dairy", Freshness: "Fresh"}}
}

func TestCreate_Defaults(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ingredients := milkIngredients()
	sess := store.Create(ctx, "thumb", ingredients)

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, ingredients, got.Ingredients)
	assert.Empty(t, got.Recipes)
	assert.Equal(t, DefaultPreferences(), got.Preferences)
	assert.Equal(t, "thumb", got.ImageThumbnail)
	assert.Equal(t, sess.ID, store.ActiveID())
}

func TestCreate_UniqueIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		sess := store.Create(ctx, "", nil)
		assert.False(t, seen[sess.ID], "duplicate id %s", sess.ID)
		seen[sess.ID] = true
	}
}

func TestUpdate_PartialMerge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sess := store.Create(ctx, "thumb", milkIngredients())

	recipes := []Recipe{{Name: "Pancakes", Steps: []string{"Mix", "Fry"}}}
	store.UpdateSession(ctx, sess.ID, Update{Recipes: recipes})

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, recipes, got.Recipes)
	// Omitted fields stay put.
	assert.Equal(t, milkIngredients(), got.Ingredients)
	assert.Equal(t, DefaultPreferences(), got.Preferences)
	assert.Equal(t, "thumb", got.ImageThumbnail)

	prefs := Preferences{Diet: "Vegan", Skill: "Beginner", Time: "Under 30 Min", Cuisine: "Any", PrioritizeExpiring: true}
	store.UpdateSession(ctx, sess.ID, Update{Preferences: &prefs})

	got, _ = store.Get(sess.ID)
	assert.Equal(t, prefs, got.Preferences)
	assert.Equal(t, recipes, got.Recipes)
}

func TestUpdate_UnknownIDIsNoOp(t *testing.T) {
	store, p := newTestStore(t)
	ctx := context.Background()
	store.Create(ctx, "thumb", nil)
	savesBefore := p.saves

	store.UpdateSession(ctx, "missing", Update{Recipes: []Recipe{{Name: "x", Steps: []string{"y"}}}})
	assert.Equal(t, savesBefore, p.saves)
}

func TestList_NewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := store.Create(ctx, "a", nil)
	second := store.Create(ctx, "b", nil)
	third := store.Create(ctx, "c", nil)

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, first.ID, list[2].ID)
}

func TestDelete_ActiveClearsPointer(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	old := store.Create(ctx, "a", nil)
	active := store.Create(ctx, "b", nil)
	require.Equal(t, active.ID, store.ActiveID())

	// Deleting a non-active session leaves the pointer alone.
	store.Delete(ctx, old.ID)
	assert.Equal(t, active.ID, store.ActiveID())

	store.Delete(ctx, active.ID)
	assert.Empty(t, store.ActiveID())
	_, ok := store.Get(active.ID)
	assert.False(t, ok)
}

func TestSetActive_RejectsUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sess := store.Create(ctx, "a", nil)

	assert.Error(t, store.SetActive("nope"))
	assert.NoError(t, store.SetActive(sess.ID))
}

func TestRoundTrip(t *testing.T) {
	p := &memoryPersist{}
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	store := NewStore(ctx, p, logger)
	store.Create(ctx, "thumb-1", milkIngredients())
	sess := store.Create(ctx, "thumb-2", nil)
	store.UpdateSession(ctx, sess.ID, Update{Recipes: []Recipe{{Name: "Omelette", Steps: []string{"Beat eggs"}}}})

	reloaded := NewStore(ctx, p, logger)
	assert.Equal(t, store.List(), reloaded.List())
}

func TestLoad_CorruptHistoryIsEmpty(t *testing.T) {
	p := &memoryPersist{data: []byte("not json")}
	store := NewStore(context.Background(), p, zap.NewNop().Sugar())
	assert.Empty(t, store.List())
}

func TestSave_PrunesOnFailure(t *testing.T) {
	store, p := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		sess := store.Create(ctx, fmt.Sprintf("thumb-%d", i), nil)
		ids = append(ids, sess.ID)
	}

	p.failOnce = true
	last := store.Create(ctx, "thumb-last", nil)

	list := store.List()
	require.Len(t, list, maxRetainedOnQuota)
	// Exactly the most recent sessions survive, newest first.
	assert.Equal(t, last.ID, list[0].ID)
	assert.Equal(t, ids[6], list[1].ID)
	assert.Equal(t, ids[3], list[4].ID)

	// The retry persisted the pruned collection.
	var persisted []FridgeSession
	require.NoError(t, json.Unmarshal(p.data, &persisted))
	assert.Len(t, persisted, maxRetainedOnQuota)
}

func TestSave_FailureAfterPruneKeepsMutation(t *testing.T) {
	store, p := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		store.Create(ctx, "t", nil)
	}

	p.failAll = true
	sess := store.Create(ctx, "kept", nil)

	// Persistence is best effort: the mutation stands in memory.
	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "kept", got.ImageThumbnail)
}
