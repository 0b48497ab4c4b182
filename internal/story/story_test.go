package story

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
)

var t0 = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

func pt(lat, lng float64, sec int) LocationPoint {
	return LocationPoint{Latitude: lat, Longitude: lng, Timestamp: t0.Add(time.Duration(sec) * time.Second)}
}

func TestRecording_SaveConsumesBuffer(t *testing.T) {
	s := New(keys.Stories, 0)
	s.StartRecording()
	p1, p2, p3 := pt(37.50, 127.03, 1), pt(37.51, 127.04, 2), pt(37.52, 127.05, 3)
	require.True(t, s.AddPoint(p1))
	require.True(t, s.AddPoint(p2))
	require.True(t, s.AddPoint(p3))

	rec, ok := s.Save(Meta{ID: "s1", Title: "Walk", UserID: "u1", WorkspaceID: "ws1"})
	require.True(t, ok)
	assert.Equal(t, []LocationPoint{p1, p2, p3}, rec.Path)

	st := s.Get()
	assert.False(t, st.IsRecording)
	assert.Empty(t, st.RecordingPath)
	require.Len(t, st.Records, 1)
	assert.Equal(t, rec, st.Records[0])
	assert.False(t, rec.Date.IsZero())
}

func TestRecording_TwoPointExample(t *testing.T) {
	s := New(keys.Stories, 0)
	s.StartRecording()
	s.AddPoint(pt(37.50, 127.03, 1))
	s.AddPoint(pt(37.51, 127.04, 2))
	rec, ok := s.Save(Meta{ID: "s1", Title: "Walk", UserID: "u1", WorkspaceID: "ws1"})
	require.True(t, ok)
	assert.Len(t, rec.Path, 2)
	assert.Empty(t, s.Get().RecordingPath)
	assert.False(t, s.Get().IsRecording)
}

func TestRecording_StopDiscards(t *testing.T) {
	s := New(keys.Memories, 0)
	s.StartRecording()
	s.AddPoint(pt(1, 1, 1))
	s.AddPoint(pt(2, 2, 2))
	s.StopRecording()

	st := s.Get()
	assert.Empty(t, st.Records)
	assert.Empty(t, st.RecordingPath)
	assert.False(t, st.IsRecording)
}

func TestRecording_IdlePointsIgnored(t *testing.T) {
	s := New(keys.Stories, 0)
	assert.False(t, s.AddPoint(pt(1, 1, 1)))
	assert.Empty(t, s.Get().RecordingPath)

	s.StartRecording()
	s.AddPoint(pt(1, 1, 1))
	s.StartRecording()
	assert.Empty(t, s.Get().RecordingPath, "restart clears the stale buffer")
}

func TestRecording_BufferIsBounded(t *testing.T) {
	const max = 10
	s := New(keys.Stories, max)
	s.StartRecording()
	for i := 0; i < 1000; i++ {
		s.AddPoint(pt(float64(i), 0, i))
		require.LessOrEqual(t, len(s.Get().RecordingPath), max)
	}

	st := s.Get()
	assert.GreaterOrEqual(t, len(st.RecordingPath), max/2)
	assert.Equal(t, pt(0, 0, 0), st.RecordingPath[0], "start of the walk kept")
	for i := 1; i < len(st.RecordingPath); i++ {
		assert.True(t, st.RecordingPath[i].Timestamp.After(st.RecordingPath[i-1].Timestamp))
	}
	assert.Greater(t, st.Stride, 1)
	assert.Zero(t, st.Stride&(st.Stride-1), "stride is a power of two")
	last := st.RecordingPath[len(st.RecordingPath)-1]
	assert.Greater(t, last.Latitude, float64(1000-2*st.Stride), "recent points still sampled")
}

func TestSave_DuplicateIDRejected(t *testing.T) {
	s := New(keys.Stories, 0)
	_, ok := s.Save(Meta{ID: "s1", Title: "first"})
	require.True(t, ok)

	s.StartRecording()
	s.AddPoint(pt(1, 1, 1))
	_, ok = s.Save(Meta{ID: "s1", Title: "second"})
	assert.False(t, ok)
	assert.True(t, s.Get().IsRecording, "recording continues after a rejected save")
	assert.Len(t, s.Get().Records, 1)
}

func TestUpdateRemoveAndForWorkspace(t *testing.T) {
	s := New(keys.Memories, 0)
	old, _ := s.Save(Meta{Title: "old", WorkspaceID: "ws1", Date: t0})
	recent, _ := s.Save(Meta{Title: "recent", WorkspaceID: "ws1", Date: t0.Add(time.Hour)})
	s.Save(Meta{Title: "elsewhere", WorkspaceID: "ws2", Date: t0})

	got := ForWorkspace(s.Get(), "ws1")
	require.Len(t, got, 2)
	assert.Equal(t, []string{recent.ID, old.ID}, []string{got[0].ID, got[1].ID})

	title := "renamed"
	require.True(t, s.Update(old.ID, Patch{Title: &title}))
	assert.False(t, s.Update("nope", Patch{Title: &title}))
	require.True(t, s.Remove(recent.ID))
	assert.False(t, s.Remove(recent.ID))
	assert.Len(t, s.Get().Records, 2)
}

func TestPersist_RecordsOnly(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := New(keys.Stories, 0)
	p := s.Persist(ctx, mem)
	s.StartRecording()
	s.AddPoint(pt(1, 2, 1))
	s.Save(Meta{ID: "s1", Title: "Walk", Date: t0})
	s.StartRecording()
	s.AddPoint(pt(3, 4, 2))
	require.NoError(t, p.Flush(ctx))
	p.Detach()

	restored := New(keys.Stories, 0)
	restored.Persist(ctx, mem.Reopen()).Detach()
	assert.Equal(t, s.Get().Records, restored.Get().Records)
	assert.False(t, restored.Get().IsRecording)
	assert.Empty(t, restored.Get().RecordingPath)

	_, err := mem.Get(ctx, keys.Memories.String())
	assert.ErrorIs(t, err, kv.ErrNotFound, "instances use disjoint keys")
}
