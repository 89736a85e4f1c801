// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package budgets

import (
	"embed"
	"encoding/json"
	"os"

	"go.chromium.org/luci/common/errors"
)

//go:embed config/budgets.json config/lighthouse.json
var bundledConfig embed.FS

// Config enumerates the budgets one run is held to. Speeds maps audit
// identifiers to timing thresholds in milliseconds. Budgets holds Lighthouse
// budget definitions passed through verbatim to the engine, which evaluates
// the resource size and count limits upstream.
type Config struct {
	Speeds  map[string]float64 `json:"speeds"`
	Budgets json.RawMessage    `json:"budgets,omitempty"`
}

// EngineConfig is the Lighthouse-style configuration document. Custom marks a
// user-supplied configuration as opposed to the bundled example; it only
// decides whether the one-time advisory notice is printed. Settings passes
// through to the engine verbatim.
type EngineConfig struct {
	Custom   bool            `json:"custom"`
	Settings json.RawMessage `json:"config,omitempty"`
}

// LoadConfig reads a budget configuration file. An empty path loads the
// bundled example configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := readConfig(path, "config/budgets.json")
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Annotate(err, "parsing budget config").Err()
	}
	return &cfg, nil
}

// LoadEngineConfig reads a Lighthouse configuration file. An empty path loads
// the bundled example configuration, which is marked non-custom.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := readConfig(path, "config/lighthouse.json")
	if err != nil {
		return nil, err
	}
	var cfg EngineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Annotate(err, "parsing lighthouse config").Err()
	}
	// A configuration supplied by the operator is custom by definition.
	if path != "" {
		cfg.Custom = true
	}
	return &cfg, nil
}

func readConfig(path, bundled string) ([]byte, error) {
	if path == "" {
		return bundledConfig.ReadFile(bundled)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading config %s", path).Err()
	}
	return data, nil
}
