package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/store"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
	Done bool   `json:"done"`
}

type notebook struct {
	Notes  []note
	Filter string
}

const notesKey = keys.Key("duet.test.notes")

func notesStrategy() Strategy[notebook] {
	return Entities(
		func(s notebook) []note { return s.Notes },
		func(s notebook, n []note) notebook { s.Notes = n; return s },
		func(n note) string { return n.ID },
	)
}

func TestEntities_WritesOnlyWhatChanged(t *testing.T) {
	rec := newRecordingKV()
	s := store.New(func() notebook { return notebook{} })
	p := Attach(context.Background(), s, rec, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))

	s.Set(func(nb notebook) notebook {
		nb.Notes = []note{{ID: "a", Body: "milk"}, {ID: "b", Body: "eggs"}, {ID: "c", Body: "tea"}}
		return nb
	})
	flush(t, p)
	sets, _ := rec.snapshot()
	assert.ElementsMatch(t, []string{"duet.test.notes/a", "duet.test.notes/b", "duet.test.notes/c", "duet.test.notes"}, sets)

	rec.reset()
	s.Set(func(nb notebook) notebook {
		next := make([]note, len(nb.Notes))
		copy(next, nb.Notes)
		next[1].Done = true
		nb.Notes = next
		return nb
	})
	flush(t, p)
	sets, removes := rec.snapshot()
	assert.Equal(t, []string{"duet.test.notes/b"}, sets, "index untouched when ids unchanged")
	assert.Empty(t, removes)

	rec.reset()
	s.Set(func(nb notebook) notebook {
		nb.Notes = []note{nb.Notes[0], nb.Notes[2]}
		return nb
	})
	flush(t, p)
	sets, removes = rec.snapshot()
	assert.Equal(t, []string{"duet.test.notes"}, sets)
	assert.Equal(t, []string{"duet.test.notes/b"}, removes)

	rec.reset()
	s.Set(func(nb notebook) notebook { nb.Filter = "open"; return nb })
	flush(t, p)
	assert.Zero(t, rec.setCount(), "fields outside the collection are not persisted")
}

func TestEntities_RehydratesInOrder(t *testing.T) {
	mem := kv.NewMemory()
	s := store.New(func() notebook { return notebook{Filter: "all"} })
	p := Attach(context.Background(), s, mem, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	s.Set(func(nb notebook) notebook {
		nb.Notes = []note{{ID: "z", Body: "last id, first item"}, {ID: "a", Body: "second"}}
		return nb
	})
	flush(t, p)

	restarted := store.New(func() notebook { return notebook{Filter: "all"} })
	Attach(context.Background(), restarted, mem.Reopen(), notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	assert.Equal(t, s.Get(), restarted.Get())
}

func TestEntities_CorruptIndexFallsBack(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), notesKey.String(), "nope"))

	s := store.New(func() notebook { return notebook{Filter: "all"} })
	Attach(context.Background(), s, mem, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	assert.Equal(t, notebook{Filter: "all"}, s.Get())
}

func TestEntities_SkipsCorruptAndMissingRecords(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, notesKey.String(), `["a","b","c"]`))
	require.NoError(t, mem.Set(ctx, notesKey.Entity("a"), `{"id":"a","body":"ok"}`))
	require.NoError(t, mem.Set(ctx, notesKey.Entity("b"), `{"id":`))

	s := store.New(func() notebook { return notebook{} })
	Attach(ctx, s, mem, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	assert.Equal(t, []note{{ID: "a", Body: "ok"}}, s.Get().Notes)
}

func TestEntities_ClearRemovesEveryRecord(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := store.New(func() notebook { return notebook{} })
	p := Attach(ctx, s, mem, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	s.Set(func(nb notebook) notebook { nb.Notes = []note{{ID: "n1"}, {ID: "n2"}}; return nb })

	require.NoError(t, p.Clear(ctx))
	assert.Zero(t, mem.Len())
}

func TestEntities_ClearIncludesUnloadedRecords(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	// "old" was written by an earlier process and is unreadable now.
	require.NoError(t, mem.Set(ctx, notesKey.String(), `["old","keep"]`))
	require.NoError(t, mem.Set(ctx, notesKey.Entity("old"), `{"id":`))
	require.NoError(t, mem.Set(ctx, notesKey.Entity("keep"), `{"id":"keep"}`))

	s := store.New(func() notebook { return notebook{} })
	p := Attach(ctx, s, mem, notesKey, notesStrategy(), WithExecutor(fastExecutor(t, nil)))
	require.Len(t, s.Get().Notes, 1)

	require.NoError(t, p.Clear(ctx))
	assert.Zero(t, mem.Len())
}
