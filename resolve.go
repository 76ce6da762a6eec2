/*
 * resolve.go, part of gopbs.
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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gopbs/gopbs/beammodel"
	"github.com/gopbs/gopbs/optics"
)

// ResolvedSource is the full Monte Carlo source description of one spot,
// evaluated at the requested output plane. It is immutable once built.
type ResolvedSource struct {
	Energy       float64 // realized energy, MeV
	EnergySpread float64 // MeV, 1-sigma
	X            float64 // mm at the isocenter, as planned
	Y            float64
	XSpace       optics.PhaseSpace // transverse phase space at the output plane
	YSpace       optics.PhaseSpace
	Protons      float64 // MU times the calibrated protons per MU
}

// Resolve combines a beam model lookup at the spot's nominal energy with two
// independent drift transports (x and y over the same distance) into the
// spot's source description at the output plane. outputDistance is in mm
// upstream of the isocenter, the same convention as the table's reference
// distance; the drift applied is outputDistance - reference.
//
// Resolve is pure: identical inputs give identical outputs, and a table can
// be shared across concurrent resolutions.
func Resolve(energy float64, s Spot, t *beammodel.Table, outputDistance float64) (ResolvedSource, error) {
	row, err := t.Lookup(energy)
	if err != nil {
		return ResolvedSource{}, errDecorate(err, "Resolve")
	}
	drift := outputDistance - t.ReferenceDistance()
	xs, err := optics.Drift(optics.PhaseSpace{Sigma: row.SigmaX, SigmaPrime: row.SigmaXPrime, Cov: row.CovX}, drift)
	if err != nil {
		return ResolvedSource{}, errDecorate(err, "Resolve: x axis")
	}
	ys, err := optics.Drift(optics.PhaseSpace{Sigma: row.SigmaY, SigmaPrime: row.SigmaYPrime, Cov: row.CovY}, drift)
	if err != nil {
		return ResolvedSource{}, errDecorate(err, "Resolve: y axis")
	}
	return ResolvedSource{
		Energy:       row.Energy,
		EnergySpread: row.EnergySpread,
		X:            s.X,
		Y:            s.Y,
		XSpace:       xs,
		YSpace:       ys,
		Protons:      s.MU * row.ProtonsPerMU,
	}, nil
}

// ExportField resolves every spot of the field at the output plane, in layer
// order and, within a layer, in spot order. That order is load-bearing: the
// emitted source decks associate sequence position with delivery time.
//
// A field with no populated layers fails with ErrEmptyField, and the first
// spot that fails resolution aborts the whole field: a partially emitted
// source list would silently under-simulate the field.
func ExportField(f *Field, t *beammodel.Table, outputDistance float64) ([]ResolvedSource, error) {
	if f.NSpots() == 0 {
		return nil, Error{ErrEmptyField,
			fmt.Sprintf("field %d", f.Number), "", []string{"ExportField"}, true}
	}
	sources := make([]ResolvedSource, 0, f.NSpots())
	for _, layer := range f.Layers {
		for j, spot := range layer.Spots {
			src, err := Resolve(layer.EnergyNominal, spot, t, outputDistance)
			if err != nil {
				return nil, errDecorate(err,
					fmt.Sprintf("ExportField: field %d, layer %d, spot %d", f.Number, layer.Number, j+1))
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}

// ApplyBeamModel sets the calibrated quantities of every layer in the plan
// (realized energy, energy spread, MU-to-protons coefficient) and refreshes
// the cumulative MU bookkeeping. It must be called before exporting.
func (P *Plan) ApplyBeamModel(t *beammodel.Table) error {
	if t == nil {
		return Error{ErrNoBeamModel, "", "", []string{"ApplyBeamModel"}, true}
	}
	for _, field := range P.Fields {
		cumMU := 0.0
		for _, layer := range field.Layers {
			row, err := t.Lookup(layer.EnergyNominal)
			if err != nil {
				return errDecorate(err,
					fmt.Sprintf("ApplyBeamModel: field %d, layer %d", field.Number, layer.Number))
			}
			layer.MUToProtons = row.ProtonsPerMU
			layer.EnergyMeasured = row.Energy
			layer.EnergySpread = row.EnergySpread
			layer.CumMU = layer.MU()
			cumMU += layer.CumMU
			log.Debugf("layer %g MeV: %d spots, MU to protons %.4g",
				layer.EnergyNominal, layer.NSpots(), layer.MUToProtons)
		}
		field.CumMU = cumMU
	}
	return nil
}
