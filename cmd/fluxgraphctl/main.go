// Command fluxgraphctl runs a windowed aggregation flow described by a YAML
// FlowConfig document, reading newline-delimited JSON events from stdin and
// writing augmented events to a sink.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fluxgraph/fluxgraph"
	"github.com/fluxgraph/fluxgraph/sinks"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	sinkPath   string
	redisAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "fluxgraphctl",
	Short: "Run and validate fluxgraph windowed aggregation flows",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a flow, reading events as newline-delimited JSON from stdin",
	RunE:  runFlow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and build a flow's aggregators without running it",
	RunE:  validateConfig,
}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	for _, cmd := range []*cobra.Command{runCmd, validateCmd} {
		cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a FlowConfig YAML document (required)")
		_ = cmd.MarkFlagRequired("config")
	}
	runCmd.Flags().StringVar(&sinkPath, "sink-path", "events", "StreamSink path written with each augmented event")
	runCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for durable output; defaults to an in-memory sink")

	rootCmd.AddCommand(runCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func validateConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadFlowConfig(configPath)
	if err != nil {
		return err
	}
	aggs, err := cfg.BuildAggregators()
	if err != nil {
		return err
	}
	if _, _, err := cfg.Emission.BuildEmissionPolicy(); err != nil {
		return err
	}
	log.Info().Str("flow", cfg.Name).Int("aggregators", len(aggs)).Msg("config valid")
	return nil
}

func runFlow(_ *cobra.Command, _ []string) error {
	cfg, err := loadFlowConfig(configPath)
	if err != nil {
		return err
	}
	aggs, err := cfg.BuildAggregators()
	if err != nil {
		return fmt.Errorf("building aggregators: %w", err)
	}
	policy, emissionType, err := cfg.Emission.BuildEmissionPolicy()
	if err != nil {
		return fmt.Errorf("building emission policy: %w", err)
	}

	op, err := fluxgraph.NewAggregatorOperator(cfg.Name, aggs, policy, emissionType, fluxgraph.RealClock)
	if err != nil {
		return fmt.Errorf("building aggregator operator: %w", err)
	}

	var sink fluxgraph.StreamSink
	if redisAddr != "" {
		sink = sinks.NewRedis(redisAddr)
	} else {
		sink = sinks.NewMemory()
	}

	sinkReducer := fluxgraph.NewSinkReducer(cfg.Name+"-sink", func(evt fluxgraph.Event) error {
		return sink.Put(rootCmd.Context(), sinkPath, evt.Key, evt.Body)
	})

	ctrl, err := fluxgraph.BuildFlow[fluxgraph.Event]([]any{
		fluxgraph.Source[fluxgraph.Event](),
		op,
		sinkReducer,
	})
	if err != nil {
		return fmt.Errorf("building flow: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var decoded map[string]interface{}
			if err := json.Unmarshal(line, &decoded); err != nil {
				log.Warn().Err(err).Msg("skipping malformed input line")
				continue
			}
			body := jsonToVariant(decoded)
			keyStr := ""
			if keyVariant, ok := body.Get("key"); ok {
				keyStr = keyVariant.String()
			}
			evtTime := time.Now().UnixMilli()
			if tsVariant, ok := body.Get("time"); ok {
				if ms, err := tsVariant.Float(); err == nil {
					evtTime = int64(ms)
				}
			}
			evt := fluxgraph.NewEvent(body, keyStr, evtTime).WithID(uuid.NewString())
			if err := ctrl.Emit(evt); err != nil {
				log.Error().Err(err).Msg("emit failed")
				break
			}
		}
		ctrl.Terminate()
	}()

	if _, err := ctrl.AwaitTermination(); err != nil {
		return fmt.Errorf("flow failed: %w", err)
	}
	log.Info().Msg("flow completed")
	return nil
}

func jsonToVariant(m map[string]interface{}) fluxgraph.Variant {
	out := make(map[string]fluxgraph.Variant, len(m))
	for k, v := range m {
		out[k] = anyToVariant(v)
	}
	return fluxgraph.MapVariant(out)
}

func anyToVariant(v interface{}) fluxgraph.Variant {
	switch val := v.(type) {
	case nil:
		return fluxgraph.NullVariant
	case float64:
		return fluxgraph.FloatVariant(val)
	case string:
		return fluxgraph.StringVariant(val)
	case bool:
		return fluxgraph.BoolVariant(val)
	case map[string]interface{}:
		return jsonToVariant(val)
	case []interface{}:
		out := make([]fluxgraph.Variant, len(val))
		for i, item := range val {
			out[i] = anyToVariant(item)
		}
		return fluxgraph.ListVariant(out)
	default:
		return fluxgraph.NullVariant
	}
}
