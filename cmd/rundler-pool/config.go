// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/rayyan224/rundler/config"
	"github.com/rayyan224/rundler/trace"
)

// appConfig is the top-level YAML document the run command loads: the
// pool core's own tuning, one Mempool configuration per EntryPoint it
// should serve, tracing, and where to expose prometheus metrics.
type appConfig struct {
	Pool          config.Pool               `yaml:"pool"`
	EntryPoints   map[string]config.Mempool `yaml:"entry_points"`
	Trace         trace.Config              `yaml:"trace"`
	MetricsListen string                    `yaml:"metrics_listen"`
}

func loadConfig(path string) (appConfig, error) {
	cfg := appConfig{MetricsListen: ":9090"}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
