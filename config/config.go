/*
 * config.go, part of gopbs.
 *
 * Copyright 2025 The gopbs authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package config reads the YAML machine catalog: named treatment machines
// with their beam model resources and reference distances, so a machine
// name on the command line replaces an explicit beam model path.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Machine is one entry of the catalog.
type Machine struct {
	// Model is the path to the machine's beam model table, absolute or
	// relative to the working directory.
	Model string `yaml:"model"`
	// ReferenceDistance is the plane the table was measured at, in mm
	// upstream of the isocenter.
	ReferenceDistance float64 `yaml:"reference_distance"`
}

// Catalog maps machine names to their calibration resources.
type Catalog struct {
	Machines map[string]Machine `yaml:"machines"`
}

// ReadCatalog reads a YAML machine catalog.
func ReadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.ReadCatalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config.ReadCatalog: %s: %w", path, err)
	}
	if len(c.Machines) == 0 {
		return nil, fmt.Errorf("config.ReadCatalog: %s: catalog lists no machines", path)
	}
	for name, m := range c.Machines {
		if m.Model == "" {
			return nil, fmt.Errorf("config.ReadCatalog: %s: machine %q has no model path", path, name)
		}
		if m.ReferenceDistance < 0 {
			return nil, fmt.Errorf("config.ReadCatalog: %s: machine %q has a negative reference distance", path, name)
		}
	}
	return &c, nil
}

// Machine looks a machine up by name.
func (c *Catalog) Machine(name string) (Machine, error) {
	m, ok := c.Machines[name]
	if !ok {
		return Machine{}, fmt.Errorf("config: no machine %q in catalog", name)
	}
	return m, nil
}
