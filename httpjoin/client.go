// Package httpjoin provides an example stateful operator: a per-event HTTP
// enrichment join with bounded concurrency and circuit-breaker protection,
// exercising the engine's HTTPClient capability.
package httpjoin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fluxgraph/fluxgraph"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// RetryableClient adapts a retryablehttp.Client to fluxgraph.HTTPClient,
// retrying transient failures (connection errors, 5xx, 429) with backoff
// before the circuit breaker ever sees a failure.
type RetryableClient struct {
	client *retryablehttp.Client
}

// NewRetryableClient builds a RetryableClient with retryablehttp's default
// exponential backoff policy. A nil logger falls back to a no-op logger;
// otherwise every retry attempt is traced through it at Debug, matching
// this module's other long-lived components.
func NewRetryableClient(logger *zerolog.Logger) *RetryableClient {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	c := retryablehttp.NewClient()
	c.Logger = &zerologLeveledLogger{logger: l}
	return &RetryableClient{client: c}
}

// zerologLeveledLogger adapts a zerolog.Logger to retryablehttp's
// LeveledLogger interface so the retry client's own request/backoff tracing
// flows into this module's structured log stream instead of being dropped.
type zerologLeveledLogger struct {
	logger zerolog.Logger
}

func (l *zerologLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Request implements fluxgraph.HTTPClient, marshaling body as JSON and
// decoding the response body the same way.
func (c *RetryableClient) Request(ctx context.Context, method, url string, body fluxgraph.Variant, headers map[string]string) (fluxgraph.Variant, error) {
	var reqBody io.Reader
	if !body.IsNull() {
		encoded, err := json.Marshal(variantToJSON(body))
		if err != nil {
			return fluxgraph.NullVariant, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fluxgraph.NullVariant, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fluxgraph.NullVariant, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fluxgraph.NullVariant, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fluxgraph.NullVariant, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	if len(raw) == 0 {
		return fluxgraph.NullVariant, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fluxgraph.NullVariant, err
	}
	return variantFromJSON(decoded), nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return "httpjoin: unexpected status " + http.StatusText(e.code) + ": " + e.body
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
