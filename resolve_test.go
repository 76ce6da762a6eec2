/*
 * resolve_test.go, part of gopbs.
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
	"math"
	"testing"

	"github.com/gopbs/gopbs/beammodel"
)

func testTable(Te *testing.T) *beammodel.Table {
	rows := []beammodel.Row{
		{NominalEnergy: 70, Energy: 70.2, EnergySpread: 0.7, ProtonsPerMU: 1.1e8,
			SigmaX: 3.0, SigmaY: 3.2, SigmaXPrime: 0.010, SigmaYPrime: 0.011, CovX: 0, CovY: 0},
		{NominalEnergy: 100, Energy: 100.3, EnergySpread: 0.9, ProtonsPerMU: 1.3e8,
			SigmaX: 2.5, SigmaY: 2.7, SigmaXPrime: 0.015, SigmaYPrime: 0.016, CovX: 0, CovY: 0},
	}
	t, err := beammodel.New(rows, 500)
	if err != nil {
		Te.Fatal(err)
	}
	return t
}

// At the reference distance the resolved sigmas are the table's, and the
// midpoint energy interpolates halfway between the bracketing rows.
func TestResolveNoDrift(Te *testing.T) {
	table := testTable(Te)
	src, err := Resolve(85, Spot{X: 10, Y: -5, MU: 2}, table, 500)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(src.XSpace.Sigma-2.75) > 1e-9 {
		Te.Errorf("midpoint sigma x: got %v, want 2.75", src.XSpace.Sigma)
	}
	if math.Abs(src.YSpace.Sigma-2.95) > 1e-9 {
		Te.Errorf("midpoint sigma y: got %v, want 2.95", src.YSpace.Sigma)
	}
	if math.Abs(src.Energy-85.25) > 1e-9 {
		Te.Errorf("midpoint energy: got %v, want 85.25", src.Energy)
	}
	if math.Abs(src.Protons-2*1.2e8) > 1 {
		Te.Errorf("protons: got %v, want %v", src.Protons, 2*1.2e8)
	}
	if src.X != 10 || src.Y != -5 {
		Te.Errorf("spot position not carried through: %v, %v", src.X, src.Y)
	}
}

// Backward drift of 100 mm from the reference plane grows the spot by the
// divergence term only, since the reference covariance is zero.
func TestResolveDrift(Te *testing.T) {
	table := testTable(Te)
	src, err := Resolve(70, Spot{MU: 1}, table, 400)
	if err != nil {
		Te.Fatal(err)
	}
	want := math.Sqrt(3.0*3.0 + 100*100*0.010*0.010) // sqrt(10)
	if math.Abs(src.XSpace.Sigma-want) > 1e-9 {
		Te.Errorf("drifted sigma x: got %v, want %v", src.XSpace.Sigma, want)
	}
	if src.XSpace.SigmaPrime != 0.010 {
		Te.Errorf("divergence changed under drift: %v", src.XSpace.SigmaPrime)
	}
	wantCov := -100 * 0.010 * 0.010
	if math.Abs(src.XSpace.Cov-wantCov) > 1e-12 {
		Te.Errorf("drifted cov x: got %v, want %v", src.XSpace.Cov, wantCov)
	}
}

// Protons scale linearly with MU while the optics stays fixed.
func TestResolveWeightLinearity(Te *testing.T) {
	table := testTable(Te)
	a, err := Resolve(100, Spot{MU: 1}, table, 450)
	if err != nil {
		Te.Fatal(err)
	}
	b, err := Resolve(100, Spot{MU: 3.5}, table, 450)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(b.Protons-3.5*a.Protons) > 1e-3 {
		Te.Errorf("protons not linear in MU: %v vs %v", b.Protons, 3.5*a.Protons)
	}
	if a.XSpace != b.XSpace || a.YSpace != b.YSpace {
		Te.Error("phase space depends on MU")
	}
}

func TestResolveOutOfRange(Te *testing.T) {
	table := testTable(Te)
	_, err := Resolve(150, Spot{MU: 1}, table, 500)
	if err == nil {
		Te.Fatal("expected an error for an energy above the table range")
	}
}

func testField() *Field {
	return &Field{
		Number: 1,
		Layers: []*Layer{
			{Number: 1, EnergyNominal: 70, Spots: []Spot{
				{X: 0, Y: 0, MU: 1}, {X: 5, Y: 0, MU: 2},
			}},
			{Number: 2, EnergyNominal: 100, Spots: []Spot{
				{X: -5, Y: 5, MU: 0.5},
			}},
		},
	}
}

// ExportField keeps layer-major spot order.
func TestExportFieldOrder(Te *testing.T) {
	table := testTable(Te)
	field := testField()
	sources, err := ExportField(field, table, 500)
	if err != nil {
		Te.Fatal(err)
	}
	if len(sources) != 3 {
		Te.Fatalf("got %d sources, want 3", len(sources))
	}
	wantX := []float64{0, 5, -5}
	wantE := []float64{70.2, 70.2, 100.3}
	for i, s := range sources {
		if s.X != wantX[i] {
			Te.Errorf("source %d: x %v, want %v", i, s.X, wantX[i])
		}
		if math.Abs(s.Energy-wantE[i]) > 1e-9 {
			Te.Errorf("source %d: energy %v, want %v", i, s.Energy, wantE[i])
		}
	}
}

func TestExportFieldEmpty(Te *testing.T) {
	table := testTable(Te)
	_, err := ExportField(&Field{Number: 2}, table, 500)
	if err == nil {
		Te.Fatal("expected an error for an empty field")
	}
	if e, ok := err.(Error); !ok || e.Message() != ErrEmptyField {
		Te.Errorf("wrong error: %v", err)
	}
}

func TestApplyBeamModel(Te *testing.T) {
	table := testTable(Te)
	plan := &Plan{Fields: []*Field{testField()}}
	if err := plan.ApplyBeamModel(table); err != nil {
		Te.Fatal(err)
	}
	first := plan.Fields[0].Layers[0]
	if math.Abs(first.EnergyMeasured-70.2) > 1e-9 || math.Abs(first.EnergySpread-0.7) > 1e-9 {
		Te.Errorf("layer calibration: E %v, spread %v", first.EnergyMeasured, first.EnergySpread)
	}
	if math.Abs(first.MUToProtons-1.1e8) > 1 {
		Te.Errorf("MU to protons: %v", first.MUToProtons)
	}
	if math.Abs(first.CumMU-3) > 1e-12 {
		Te.Errorf("layer cumulative MU: %v", first.CumMU)
	}
	if math.Abs(plan.Fields[0].CumMU-3.5) > 1e-12 {
		Te.Errorf("field cumulative MU: %v", plan.Fields[0].CumMU)
	}
	if math.Abs(plan.Fields[0].Protons()-(3*1.1e8+0.5*1.3e8)) > 1 {
		Te.Errorf("field protons: %v", plan.Fields[0].Protons())
	}
}
