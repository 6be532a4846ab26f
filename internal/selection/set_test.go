package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/internal/models"
)

func topic(id string) models.Topic {
	return models.Topic{
		ID:           id,
		Title:        "Topic " + id,
		Description:  "Description of " + id,
		Category:     models.CategoryWeb,
		Difficulty:   models.DifficultyBeginner,
		Technologies: []string{"Go", "React"},
	}
}

func ids(topics []models.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.ID
	}
	return out
}

func TestToggleAddsAndRemoves(t *testing.T) {
	ctx := context.Background()
	port := NewMemoryPort()
	set, err := Load(ctx, port)
	require.NoError(t, err)

	change, err := set.Toggle(ctx, topic("a"))
	require.NoError(t, err)
	assert.Equal(t, Added, change)

	change, err = set.Toggle(ctx, topic("b"))
	require.NoError(t, err)
	assert.Equal(t, Added, change)
	assert.Equal(t, []string{"a", "b"}, ids(set.Topics()))

	change, err = set.Toggle(ctx, topic("a"))
	require.NoError(t, err)
	assert.Equal(t, Removed, change)
	assert.Equal(t, []string{"b"}, ids(set.Topics()))
}

func TestToggleRejectsFourthTopic(t *testing.T) {
	ctx := context.Background()
	port := NewMemoryPort()
	set, err := Load(ctx, port)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := set.Toggle(ctx, topic(id))
		require.NoError(t, err)
	}

	before, _, _ := port.Load(ctx)
	writes := port.Writes()

	change, err := set.Toggle(ctx, topic("d"))
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Empty(t, change)
	assert.Equal(t, []string{"a", "b", "c"}, ids(set.Topics()))

	after, _, _ := port.Load(ctx)
	assert.Equal(t, before, after, "stored bytes must be unchanged")
	assert.Equal(t, writes, port.Writes(), "no storage write on rejection")

	// A selected topic can still be toggled off at capacity
	change, err = set.Toggle(ctx, topic("b"))
	require.NoError(t, err)
	assert.Equal(t, Removed, change)
}

func TestToggleRequiresID(t *testing.T) {
	set, err := Load(context.Background(), NewMemoryPort())
	require.NoError(t, err)

	_, err = set.Toggle(context.Background(), models.Topic{Title: "no id"})
	assert.ErrorIs(t, err, ErrMissingTopicID)
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	ctx := context.Background()
	port := NewMemoryPort()
	set, _ := Load(ctx, port)
	_, _ = set.Toggle(ctx, topic("a"))
	writes := port.Writes()

	require.NoError(t, set.Remove(ctx, "zzz"))
	assert.Equal(t, writes, port.Writes())
	assert.Equal(t, 1, set.Len())

	require.NoError(t, set.Remove(ctx, "a"))
	assert.Equal(t, 0, set.Len())
	_, ok, _ := port.Load(ctx)
	assert.False(t, ok, "empty wishlist must not be stored")
}

func TestClearDeletesStorageKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore(0)
	port := NewKVPort(kv.Namespace(store, "session:s1:"))

	set, _ := Load(ctx, port)
	_, _ = set.Toggle(ctx, topic("a"))
	_, _ = set.Toggle(ctx, topic("b"))

	_, ok, _ := store.Get(ctx, "session:s1:"+StorageKey)
	require.True(t, ok)

	require.NoError(t, set.Clear(ctx))
	_, ok, _ = store.Get(ctx, "session:s1:"+StorageKey)
	assert.False(t, ok)
	assert.Equal(t, 0, set.Len())
}

func TestLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	port := NewMemoryPort()
	set, _ := Load(ctx, port)
	for _, id := range []string{"c", "a", "b"} {
		_, _ = set.Toggle(ctx, topic(id))
	}

	reloaded, err := Load(ctx, port)
	require.NoError(t, err)
	assert.Equal(t, set.Topics(), reloaded.Topics())
}

func TestLoadPurgesCorruptValue(t *testing.T) {
	cases := map[string]string{
		"not json":      "{selected: nope",
		"empty array":   "[]",
		"null":          "null",
		"too many":      `[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"}]`,
		"duplicate ids": `[{"id":"1"},{"id":"1"}]`,
		"missing id":    `[{"title":"x"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			port := NewMemoryPort()
			require.NoError(t, port.Save(ctx, []byte(raw)))

			set, err := Load(ctx, port)
			require.NoError(t, err)
			assert.Equal(t, 0, set.Len())

			_, ok, _ := port.Load(ctx)
			assert.False(t, ok, "corrupt value must be purged")
		})
	}
}

func TestLoadAcceptsDocumentStoreIDs(t *testing.T) {
	ctx := context.Background()
	port := NewMemoryPort()
	require.NoError(t, port.Save(ctx, []byte(`[{"_id":"64f1","title":"Legacy"}]`)))

	set, err := Load(ctx, port)
	require.NoError(t, err)
	assert.True(t, set.Contains("64f1"))
}

type failingPort struct {
	*MemoryPort
}

func (p failingPort) Save(context.Context, []byte) error {
	return errors.New("disk full")
}

func TestFailedWriteKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	set, _ := Load(ctx, failingPort{NewMemoryPort()})

	_, err := set.Toggle(ctx, topic("a"))
	assert.Error(t, err)
	assert.Equal(t, 0, set.Len())
}

// toggleSequence replays toggles of ids drawn from a small pool
func toggleSequence(ctx context.Context, set *Set, seq []int) error {
	for _, n := range seq {
		if _, err := set.Toggle(ctx, topic(fmt.Sprintf("t%d", n))); err != nil && !errors.Is(err, ErrLimitReached) {
			return err
		}
	}
	return nil
}

func TestSelectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	pool := gen.SliceOf(gen.IntRange(0, 6))

	properties.Property("wishlist never exceeds capacity", prop.ForAll(
		func(seq []int) bool {
			ctx := context.Background()
			set, _ := Load(ctx, NewMemoryPort())
			for _, n := range seq {
				_, _ = set.Toggle(ctx, topic(fmt.Sprintf("t%d", n)))
				if set.Len() > MaxTopics {
					return false
				}
			}
			return true
		},
		pool,
	))

	properties.Property("double toggle below capacity restores contents and storage", prop.ForAll(
		func(seq []int, extra int) bool {
			ctx := context.Background()
			port := NewMemoryPort()
			set, _ := Load(ctx, port)
			if err := toggleSequence(ctx, set, seq); err != nil {
				return false
			}

			t := topic(fmt.Sprintf("t%d", extra))
			if set.Full() && !set.Contains(t.ID) {
				return true
			}

			before := set.Topics()
			storedBefore, existedBefore, _ := port.Load(ctx)

			if _, err := set.Toggle(ctx, t); err != nil {
				return false
			}
			if _, err := set.Toggle(ctx, t); err != nil {
				return false
			}

			storedAfter, existedAfter, _ := port.Load(ctx)
			if set.Contains(t.ID) != containsID(before, t.ID) {
				return false
			}
			if existedBefore != existedAfter {
				return false
			}
			// Removing and re-adding a present topic moves it to the end
			if containsID(before, t.ID) {
				return set.Len() == len(before)
			}
			return fmt.Sprint(ids(before)) == fmt.Sprint(ids(set.Topics())) &&
				string(storedBefore) == string(storedAfter)
		},
		pool,
		gen.IntRange(0, 6),
	))

	properties.Property("storage holds a value exactly when the wishlist is non-empty", prop.ForAll(
		func(seq []int) bool {
			ctx := context.Background()
			port := NewMemoryPort()
			set, _ := Load(ctx, port)
			if err := toggleSequence(ctx, set, seq); err != nil {
				return false
			}
			_, ok, _ := port.Load(ctx)
			if ok != (set.Len() > 0) {
				return false
			}

			reloaded, err := Load(ctx, port)
			if err != nil {
				return false
			}
			return fmt.Sprint(ids(reloaded.Topics())) == fmt.Sprint(ids(set.Topics()))
		},
		pool,
	))

	properties.TestingRun(t)
}

func containsID(topics []models.Topic, id string) bool {
	for _, t := range topics {
		if t.ID == id {
			return true
		}
	}
	return false
}
