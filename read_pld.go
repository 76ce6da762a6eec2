/*
 * read_pld.go, part of gopbs.
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

package pbs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ReadPlanPLD reads an IBA-style PLD file. A PLD file holds exactly one
// field. Spots with zero MU are dropped while reading; the PLD format has no
// plan UID, so a fresh one is generated.
//
// The layout is line oriented: the first line carries plan and field data,
// then each "Layer" line is followed by its "Element" (spot) lines.
func ReadPlanPLD(name string) (*Plan, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{ErrMalformedPlan, err.Error(), name, []string{"ReadPlanPLD"}, true}
	}
	defer f.Close()
	const eps = 1.0e-10
	plan := &Plan{UID: uuid.NewString(), Scaling: 1.0}
	field := &Field{Number: 1, Scaling: 1.0}
	plan.Fields = []*Field{field}

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, Error{ErrMalformedPlan, "empty file", name, []string{"ReadPlanPLD"}, true}
	}
	header := splitCSV(scanner.Text())
	if len(header) < 10 {
		return nil, Error{ErrMalformedPlan,
			fmt.Sprintf("header has %d fields, want at least 10", len(header)),
			name, []string{"ReadPlanPLD"}, true}
	}
	plan.PatientID = header[1]
	plan.PatientName = header[2]
	plan.PatientInitials = header[3]
	plan.PatientFirstName = header[4]
	plan.Label = header[5]
	plan.BeamName = header[6]
	var nlayers int
	for _, p := range []struct {
		dst *float64
		s   string
	}{{&field.CumMU, header[7]}, {&field.MetersetWeightFinal, header[8]}} {
		if *p.dst, err = strconv.ParseFloat(p.s, 64); err != nil {
			return nil, Error{ErrMalformedPlan, "header: " + err.Error(), name, []string{"ReadPlanPLD"}, true}
		}
	}
	if nlayers, err = strconv.Atoi(header[9]); err != nil {
		return nil, Error{ErrMalformedPlan, "header: " + err.Error(), name, []string{"ReadPlanPLD"}, true}
	}

	var layer *Layer
	var fwhm float64
	lineno := 1
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.Contains(line, "Layer"):
			layer, fwhm, err = pldLayer(splitCSV(line))
			if err != nil {
				return nil, Error{ErrMalformedPlan,
					fmt.Sprintf("line %d: %v", lineno, err), name, []string{"ReadPlanPLD"}, true}
			}
			layer.Number = len(field.Layers) + 1
			field.Layers = append(field.Layers, layer)
		case strings.Contains(line, "Element"):
			if layer == nil {
				return nil, Error{ErrMalformedPlan,
					fmt.Sprintf("line %d: spot before any layer", lineno), name, []string{"ReadPlanPLD"}, true}
			}
			s, err := pldSpot(splitCSV(line), fwhm)
			if err != nil {
				return nil, Error{ErrMalformedPlan,
					fmt.Sprintf("line %d: %v", lineno, err), name, []string{"ReadPlanPLD"}, true}
			}
			if s.MU > eps {
				layer.Spots = append(layer.Spots, s)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, Error{ErrMalformedPlan, err.Error(), name, []string{"ReadPlanPLD"}, true}
	}
	if len(field.Layers) != nlayers {
		log.Warnf("%s: header announced %d layers, found %d", name, nlayers, len(field.Layers))
	}
	log.Infof("read PLD plan %q with %d layers, %d spots", plan.Label, field.NLayers(), field.NSpots())
	return plan, nil
}

// pldLayer parses a "Layer" record: tag, spot size sigma (mm), nominal
// energy (MeV), cumulative MU, expected spot count, optional repaint count.
// The second return value is the nominal spot FWHM for the layer's elements.
func pldLayer(tokens []string) (*Layer, float64, error) {
	if len(tokens) < 5 {
		return nil, 0, fmt.Errorf("layer record has %d fields, want at least 5", len(tokens))
	}
	sigma, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return nil, 0, err
	}
	energy, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil {
		return nil, 0, err
	}
	cmu, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return nil, 0, err
	}
	nspots, err := strconv.Atoi(tokens[4])
	if err != nil {
		return nil, 0, err
	}
	repaint := 0
	if len(tokens) > 5 {
		if repaint, err = strconv.Atoi(tokens[5]); err != nil {
			return nil, 0, err
		}
	}
	l := &Layer{
		EnergyNominal:  energy,
		EnergyMeasured: energy,
		CumMU:          cmu,
		Repaint:        repaint,
		Spots:          make([]Spot, 0, nspots),
	}
	return l, Sigma2FWHM * sigma, nil
}

// pldSpot parses an "Element" record: tag, x, y, MU. The layer record
// supplies the nominal spot size.
func pldSpot(tokens []string, fwhm float64) (Spot, error) {
	const eps = 1.0e-10
	if len(tokens) < 4 {
		return Spot{}, fmt.Errorf("element record has %d fields, want at least 4", len(tokens))
	}
	var vals [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return Spot{}, err
		}
		vals[i] = v
	}
	for i := range vals {
		if vals[i] < eps && vals[i] > -eps {
			vals[i] = 0
		}
	}
	return Spot{X: vals[0], Y: vals[1], MU: vals[2], SizeX: fwhm, SizeY: fwhm}, nil
}

func splitCSV(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
