package main

import (
	"fmt"
	"os"

	"github.com/fluxgraph/fluxgraph"
	"gopkg.in/yaml.v2"
)

// loadFlowConfig reads and decodes a FlowConfig document from path.
func loadFlowConfig(path string) (*fluxgraph.FlowConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg fluxgraph.FlowConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
