package fluxgraph

import "context"

// ErrNotFound is returned by KVTable.Get when a key is absent.
var ErrNotFound = flowErrString("key not found")

// KVTable is the abstract key-value lookup capability consumed at graph
// endpoints (e.g. an enrichment join ahead of an aggregator). Durable
// table storage is out of scope for this engine; implementations live in
// the sinks subpackage or are supplied by the embedding application.
type KVTable interface {
	Get(ctx context.Context, path, key string) (Variant, error)
}

// StreamSink is the abstract durable-write capability used at graph exits.
// Record bodies are opaque to the engine; a sink only needs to acknowledge
// receipt per partition.
type StreamSink interface {
	Put(ctx context.Context, path string, partition string, record Variant) error
}

// HTTPClient is the abstract request/response capability an HTTP join
// operator consumes. The core makes no assumption about transport beyond
// asynchronous request/response.
type HTTPClient interface {
	Request(ctx context.Context, method, url string, body Variant, headers map[string]string) (Variant, error)
}
