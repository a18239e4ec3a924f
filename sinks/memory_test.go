package sinks

import (
	"context"
	"testing"

	"github.com/fluxgraph/fluxgraph"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutAndRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "events", "tal", fluxgraph.IntVariant(1)))
	require.NoError(t, m.Put(ctx, "events", "tal", fluxgraph.IntVariant(2)))
	require.NoError(t, m.Put(ctx, "events", "zoe", fluxgraph.IntVariant(99)))

	tal := m.Records("events", "tal")
	require.Len(t, tal, 2)
	v, err := tal[1].Float()
	require.NoError(t, err)
	require.Equal(t, 2.0, v)

	zoe := m.Records("events", "zoe")
	require.Len(t, zoe, 1)
}

func TestMemory_SeedAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed("users", map[string]fluxgraph.Variant{"tal": fluxgraph.StringVariant("admin")})

	v, err := m.Get(ctx, "users", "tal")
	require.NoError(t, err)
	require.Equal(t, "admin", v.String())

	_, err = m.Get(ctx, "users", "missing")
	require.ErrorIs(t, err, fluxgraph.ErrNotFound)

	_, err = m.Get(ctx, "missing-path", "tal")
	require.ErrorIs(t, err, fluxgraph.ErrNotFound)
}

func TestMemory_RecordsReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "events", "tal", fluxgraph.IntVariant(1)))

	records := m.Records("events", "tal")
	records[0] = fluxgraph.IntVariant(999)

	fresh := m.Records("events", "tal")
	v, _ := fresh[0].Float()
	require.Equal(t, 1.0, v)
}
