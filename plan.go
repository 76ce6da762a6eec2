/*
 * plan.go, part of gopbs.
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
	"strings"

	"gonum.org/v1/gonum/stat"
)

// RangeShifter is a slab of material inserted between nozzle and patient to
// shift the beam range. Distances in mm.
type RangeShifter struct {
	ID        string
	Number    int
	Type      string
	Thickness float64
	// WET is the water-equivalent thickness reported by the plan.
	WET float64
	// IsocenterDistance is from the isocenter to the downstream edge.
	IsocenterDistance float64
	Material          string
	Inserted          bool
}

// Spot is a single scanned spot: lateral position at the isocenter (mm),
// delivered monitor units, and the nominal spot size (FWHM, mm) the planning
// system recorded, kept for diagnostics.
type Spot struct {
	X     float64
	Y     float64
	MU    float64
	SizeX float64
	SizeY float64
}

// Layer is one energy layer of a scanned field. The geometry attributes
// (isocenter, angles, snout, SAD) are stored per layer because control points
// carry them per layer even when they never change within a field.
type Layer struct {
	Spots          []Spot
	EnergyNominal  float64 // MeV, the lookup key into the beam model
	EnergyMeasured float64 // MeV, set by ApplyBeamModel
	EnergySpread   float64 // MeV 1-sigma, set by ApplyBeamModel
	CumMU          float64
	Repaint        int
	MUToProtons    float64 // protons per MU, set by ApplyBeamModel
	Isocenter      [3]float64
	GantryAngle    float64 // deg
	CouchAngle     float64 // deg
	SnoutPosition  float64 // mm
	SADX           float64 // mm, source-to-axis distance, x bending plane
	SADY           float64 // mm, y bending plane
	Number         int     // 1-based, counting populated layers only
}

// NSpots returns the number of spots in the layer.
func (L *Layer) NSpots() int { return len(L.Spots) }

// MU returns the summed monitor units of all spots in the layer.
func (L *Layer) MU() float64 {
	s := 0.0
	for _, spot := range L.Spots {
		s += spot.MU
	}
	return s
}

// Protons returns the layer's proton count. Meaningful only after
// ApplyBeamModel has set the MU-to-protons coefficient.
func (L *Layer) Protons() float64 {
	if L.MUToProtons <= 0 {
		return 0
	}
	return L.MU() * L.MUToProtons
}

// XRange returns the lowest and highest spot x position, or zeros for an
// empty layer. YRange is the y equivalent.
func (L *Layer) XRange() (min, max float64) {
	for i, s := range L.Spots {
		if i == 0 || s.X < min {
			min = s.X
		}
		if i == 0 || s.X > max {
			max = s.X
		}
	}
	return min, max
}

func (L *Layer) YRange() (min, max float64) {
	for i, s := range L.Spots {
		if i == 0 || s.Y < min {
			min = s.Y
		}
		if i == 0 || s.Y > max {
			max = s.Y
		}
	}
	return min, max
}

// Centre returns the MU-weighted centre of the layer's spot map.
func (L *Layer) Centre() (x, y float64) {
	if len(L.Spots) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(L.Spots))
	ys := make([]float64, len(L.Spots))
	ws := make([]float64, len(L.Spots))
	for i, s := range L.Spots {
		xs[i], ys[i], ws[i] = s.X, s.Y, s.MU
	}
	return stat.Mean(xs, ws), stat.Mean(ys, ws)
}

// String returns a diagnostic overview of the layer.
func (L *Layer) String() string {
	var b strings.Builder
	sep := "------------------------------------------------\n"
	b.WriteString(sep)
	fmt.Fprintf(&b, "Energy nominal        : %10.4f MeV\n", L.EnergyNominal)
	fmt.Fprintf(&b, "Energy measured       : %10.4f MeV\n", L.EnergyMeasured)
	fmt.Fprintf(&b, "Energy spread         : %10.4f MeV\n", L.EnergySpread)
	fmt.Fprintf(&b, "Cumulative MU         : %10.4f\n", L.CumMU)
	fmt.Fprintf(&b, "Estimated particles   : %10.4e\n", L.Protons())
	fmt.Fprintf(&b, "Number of spots       : %10d\n", L.NSpots())
	b.WriteString(sep)
	xmin, xmax := L.XRange()
	ymin, ymax := L.YRange()
	cx, cy := L.Centre()
	fmt.Fprintf(&b, "Spot layer min/max X  : %+10.4f %+10.4f mm\n", xmin, xmax)
	fmt.Fprintf(&b, "Spot layer min/max Y  : %+10.4f %+10.4f mm\n", ymin, ymax)
	fmt.Fprintf(&b, "MU-weighted centre    : %+10.4f %+10.4f mm\n", cx, cy)
	b.WriteString(sep)
	return b.String()
}

// Field is a scanned treatment field: an ordered sequence of energy layers
// plus the delivery bookkeeping read from the plan.
type Field struct {
	Layers []*Layer
	Dose   float64 // Gy
	CumMU  float64
	// MetersetWeightFinal is the final cumulative meterset weight of the
	// field; MetersetPerWeight converts spot weights to MU.
	MetersetWeightFinal float64
	MetersetPerWeight   float64
	SOPInstanceUID      string
	Number              int // 1-based
	Scaling             float64
	RangeShifter        *RangeShifter
}

// NLayers returns the number of populated energy layers.
func (F *Field) NLayers() int { return len(F.Layers) }

// NSpots returns the total number of spots over all layers.
func (F *Field) NSpots() int {
	n := 0
	for _, l := range F.Layers {
		n += l.NSpots()
	}
	return n
}

// Protons returns the field's total proton count. Meaningful only after
// ApplyBeamModel.
func (F *Field) Protons() float64 {
	s := 0.0
	for _, l := range F.Layers {
		s += l.Protons()
	}
	return s
}

// EnergyBounds returns the lowest and highest nominal layer energy, or zeros
// for a field without layers.
func (F *Field) EnergyBounds() (min, max float64) {
	for i, l := range F.Layers {
		if i == 0 || l.EnergyNominal < min {
			min = l.EnergyNominal
		}
		if i == 0 || l.EnergyNominal > max {
			max = l.EnergyNominal
		}
	}
	return min, max
}

// String returns a diagnostic overview of the field.
func (F *Field) String() string {
	const indent = "    "
	var b strings.Builder
	sep := indent + "------------------------------------------------\n"
	b.WriteString(sep)
	fmt.Fprintf(&b, indent+"Energy layers          : %10d\n", F.NLayers())
	fmt.Fprintf(&b, indent+"Total MUs              : %10.4f\n", F.CumMU)
	b.WriteString(sep)
	for i, l := range F.Layers {
		fmt.Fprintf(&b, indent+"   Layer %3d: %10.4f MeV    %10d spots\n",
			i+1, l.EnergyNominal, l.NSpots())
	}
	emin, emax := F.EnergyBounds()
	fmt.Fprintf(&b, indent+"Lowest energy          : %10.4f MeV\n", emin)
	fmt.Fprintf(&b, indent+"Highest energy         : %10.4f MeV\n", emax)
	b.WriteString(sep)
	return b.String()
}

// Plan is a proton therapy plan: one or more fields plus patient and plan
// identification.
type Plan struct {
	Fields           []*Field
	PatientID        string
	PatientName      string
	PatientInitials  string
	PatientFirstName string
	Label            string
	Date             string
	BeamName         string
	UID              string
	Scaling          float64
}

// NFields returns the number of fields in the plan.
func (P *Plan) NFields() int { return len(P.Fields) }

// NLayers returns the total number of layers over all fields.
func (P *Plan) NLayers() int {
	n := 0
	for _, f := range P.Fields {
		n += f.NLayers()
	}
	return n
}

// NSpots returns the total number of spots over all fields.
func (P *Plan) NSpots() int {
	n := 0
	for _, f := range P.Fields {
		n += f.NSpots()
	}
	return n
}

// Field returns the 1-based field nr, the numbering treatment plans use.
func (P *Plan) Field(nr int) (*Field, error) {
	if nr < 1 || nr > len(P.Fields) {
		return nil, Error{ErrNoSuchField,
			fmt.Sprintf("field %d requested, plan has %d", nr, len(P.Fields)),
			"", []string{"Field"}, true}
	}
	return P.Fields[nr-1], nil
}

// String returns a diagnostic overview of the whole plan.
func (P *Plan) String() string {
	var b strings.Builder
	b.WriteString("Diagnostics:\n")
	b.WriteString("---------------------------------------------------\n")
	fmt.Fprintf(&b, "Patient Name           : '%s'       [%s]\n", P.PatientName, P.PatientInitials)
	fmt.Fprintf(&b, "Patient ID             : %s\n", P.PatientID)
	fmt.Fprintf(&b, "Plan label             : %s\n", P.Label)
	fmt.Fprintf(&b, "Plan date              : %s\n", P.Date)
	fmt.Fprintf(&b, "Number of Fields       : %2d\n", P.NFields())
	for i, f := range P.Fields {
		b.WriteString("---------------------------------------------------\n")
		fmt.Fprintf(&b, "   Field                  : %02d/%02d:\n", i+1, P.NFields())
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	return b.String()
}
