// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flashmap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseGeometry parses a YAML memory map description. Fields missing from
// the description keep their Default values.
func ParseGeometry(data []byte) (Geometry, error) {
	g := Default()
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Geometry{}, fmt.Errorf("flashmap: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// LoadGeometry reads the memory map from the YAML file. The empty path
// selects the Default memory map.
func LoadGeometry(path string) (Geometry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to read memory map '%s': %w", path, err)
	}
	g, err := ParseGeometry(data)
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to process memory map '%s': %w", path, err)
	}
	return g, nil
}
