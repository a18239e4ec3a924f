package sinks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fluxgraph/fluxgraph"
	"github.com/gomodule/redigo/redis"
)

// Redis is a KVTable and StreamSink backed by a Redis server via redigo.
// Key-value lookups use a Redis hash per path; stream writes use Redis
// lists as an append-only log per path/partition.
type Redis struct {
	pool *redis.Pool
}

// NewRedis creates a Redis-backed sink/table pair dialing addr lazily
// through a redigo connection pool.
func NewRedis(addr string) *Redis {
	return &Redis{
		pool: &redis.Pool{
			MaxIdle:     8,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr)
			},
		},
	}
}

func encodeVariant(v fluxgraph.Variant) (string, error) {
	m := variantToJSON(v)
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeVariant(s string) (fluxgraph.Variant, error) {
	var m interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return fluxgraph.NullVariant, err
	}
	return variantFromJSON(m), nil
}

func variantToJSON(v fluxgraph.Variant) interface{} {
	switch v.Kind() {
	case fluxgraph.KindNull:
		return nil
	case fluxgraph.KindInt, fluxgraph.KindFloat:
		f, _ := v.Float()
		return f
	case fluxgraph.KindString:
		return v.String()
	case fluxgraph.KindBool:
		return v.Bool()
	case fluxgraph.KindMap:
		out := make(map[string]interface{}, len(v.Map()))
		for k, val := range v.Map() {
			out[k] = variantToJSON(val)
		}
		return out
	case fluxgraph.KindList:
		out := make([]interface{}, len(v.List()))
		for i, val := range v.List() {
			out[i] = variantToJSON(val)
		}
		return out
	default:
		return nil
	}
}

func variantFromJSON(m interface{}) fluxgraph.Variant {
	switch val := m.(type) {
	case nil:
		return fluxgraph.NullVariant
	case float64:
		return fluxgraph.FloatVariant(val)
	case string:
		return fluxgraph.StringVariant(val)
	case bool:
		return fluxgraph.BoolVariant(val)
	case map[string]interface{}:
		out := make(map[string]fluxgraph.Variant, len(val))
		for k, v := range val {
			out[k] = variantFromJSON(v)
		}
		return fluxgraph.MapVariant(out)
	case []interface{}:
		out := make([]fluxgraph.Variant, len(val))
		for i, v := range val {
			out[i] = variantFromJSON(v)
		}
		return fluxgraph.ListVariant(out)
	default:
		return fluxgraph.NullVariant
	}
}

// Get implements fluxgraph.KVTable via an HGET against the path's hash.
func (r *Redis) Get(ctx context.Context, path, key string) (fluxgraph.Variant, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fluxgraph.NullVariant, err
	}
	defer conn.Close()

	s, err := redis.String(conn.Do("HGET", path, key))
	if err == redis.ErrNil {
		return fluxgraph.NullVariant, fluxgraph.ErrNotFound
	}
	if err != nil {
		return fluxgraph.NullVariant, err
	}
	return decodeVariant(s)
}

// Put implements fluxgraph.StreamSink via RPUSH onto a path/partition list.
func (r *Redis) Put(ctx context.Context, path string, partition string, record fluxgraph.Variant) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	encoded, err := encodeVariant(record)
	if err != nil {
		return err
	}
	_, err = conn.Do("RPUSH", path+"/"+partition, encoded)
	return err
}

// Close releases pooled connections.
func (r *Redis) Close() error {
	return r.pool.Close()
}
