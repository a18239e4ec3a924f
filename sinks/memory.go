// Package sinks provides StreamSink and KVTable implementations consumed
// at the edges of a fluxgraph flow: an in-memory pair for tests and the
// fluxgraphctl CLI, and a Redis-backed pair for durable use.
package sinks

import (
	"context"
	"sync"

	"github.com/fluxgraph/fluxgraph"
)

// Memory is an in-process KVTable and StreamSink, useful for tests and as
// fluxgraphctl's default sink: no external dependency, full visibility into
// what was written.
type Memory struct {
	mu      sync.Mutex
	table   map[string]map[string]fluxgraph.Variant
	records map[string][]fluxgraph.Variant
}

// NewMemory creates an empty in-memory sink/table pair.
func NewMemory() *Memory {
	return &Memory{
		table:   make(map[string]map[string]fluxgraph.Variant),
		records: make(map[string][]fluxgraph.Variant),
	}
}

// Seed preloads a table path with key-value pairs, for KVTable lookups in
// tests without a round trip through Put.
func (m *Memory) Seed(path string, values map[string]fluxgraph.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[path] = values
}

// Get implements fluxgraph.KVTable.
func (m *Memory) Get(_ context.Context, path, key string) (fluxgraph.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.table[path]
	if !ok {
		return fluxgraph.NullVariant, fluxgraph.ErrNotFound
	}
	v, ok := values[key]
	if !ok {
		return fluxgraph.NullVariant, fluxgraph.ErrNotFound
	}
	return v, nil
}

// Put implements fluxgraph.StreamSink, appending record to path/partition.
func (m *Memory) Put(_ context.Context, path string, partition string, record fluxgraph.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := path + "/" + partition
	m.records[key] = append(m.records[key], record)
	return nil
}

// Records returns everything written to path/partition, for test assertions.
func (m *Memory) Records(path, partition string) []fluxgraph.Variant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fluxgraph.Variant(nil), m.records[path+"/"+partition]...)
}
