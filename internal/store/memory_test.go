// internal/store/memory_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := m.Read(ctx, "sessions/ABC123")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Write(ctx, "sessions/ABC123", []byte(`{"code":"ABC123"}`)))
	v, ok, err := m.Read(ctx, "sessions/ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"code":"ABC123"}`, string(v))
}

func TestMergePreservesOtherFields(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "s", []byte(`{"a":1,"b":"x"}`)))
	require.NoError(t, m.Merge(ctx, "s", map[string]any{"b": "y", "c": true}))

	v, _, _ := m.Read(ctx, "s")
	assert.JSONEq(t, `{"a":1,"b":"y","c":true}`, string(v))
}

func TestIncrement(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "s", []byte(`{"duration":300}`)))

	total, err := m.Increment(ctx, "s", "duration", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(330), total)

	total, err = m.Increment(ctx, "s", "duration", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(360), total)

	v, _, _ := m.Read(ctx, "s")
	assert.JSONEq(t, `{"duration":360}`, string(v))
}

func TestSetIfAbsent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	claimed, err := m.SetIfAbsent(ctx, "sessions/AAAAAA", []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = m.SetIfAbsent(ctx, "sessions/AAAAAA", []byte(`{"other":1}`))
	require.NoError(t, err)
	assert.False(t, claimed, "existing path must not be overwritten")

	v, _, _ := m.Read(ctx, "sessions/AAAAAA")
	assert.JSONEq(t, `{}`, string(v))
}

func TestReadChildrenDirectOnly(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "s/participants/p1", []byte(`{"name":"a"}`)))
	require.NoError(t, m.Write(ctx, "s/participants/p2", []byte(`{"name":"b"}`)))
	require.NoError(t, m.Write(ctx, "s/participants/p2/nested", []byte(`{}`)))

	children, err := m.ReadChildren(ctx, "s/participants")
	require.NoError(t, err)
	assert.Len(t, children, 2)
	assert.Contains(t, children, "p1")
	assert.Contains(t, children, "p2")
}

func TestRemoveSubtree(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "s", []byte(`{}`)))
	require.NoError(t, m.Write(ctx, "s/participants/p1", []byte(`{}`)))

	require.NoError(t, m.Remove(ctx, "s"))
	_, ok, _ := m.Read(ctx, "s")
	assert.False(t, ok)
	_, ok, _ = m.Read(ctx, "s/participants/p1")
	assert.False(t, ok, "descendants go with the parent")
}

func TestSubscribeFiresImmediatelyAndOnChange(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "s", []byte(`{"v":1}`)))

	var deliveries []string
	cancel, err := m.Subscribe(ctx, "s", func(value []byte, ok bool) {
		if ok {
			deliveries = append(deliveries, string(value))
		}
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 1, "current value delivered on subscribe")

	require.NoError(t, m.Write(ctx, "s", []byte(`{"v":2}`)))
	require.Len(t, deliveries, 2)
	assert.JSONEq(t, `{"v":2}`, deliveries[1])

	cancel()
	require.NoError(t, m.Write(ctx, "s", []byte(`{"v":3}`)))
	assert.Len(t, deliveries, 2, "no deliveries after cancel")
}

func TestSubscribeSeesDescendantChanges(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "s", []byte(`{"v":1}`)))

	fired := 0
	_, err := m.Subscribe(ctx, "s", func([]byte, bool) { fired++ })
	require.NoError(t, err)
	require.Equal(t, 1, fired)

	require.NoError(t, m.Write(ctx, "s/participants/p1", []byte(`{}`)))
	assert.Equal(t, 2, fired, "participant writes notify session watchers")

	require.NoError(t, m.Write(ctx, "other", []byte(`{}`)))
	assert.Equal(t, 2, fired, "unrelated paths stay silent")
}

func TestCreateChildUnique(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	a, err := m.CreateChild(ctx, "s/participants")
	require.NoError(t, err)
	b, err := m.CreateChild(ctx, "s/participants")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
