/*
 * read_dicom.go, part of gopbs.
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
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// rtIonPlanSOPClass is the SOP Class UID of an RT Ion Plan Storage object.
const rtIonPlanSOPClass = "1.2.840.10008.5.1.4.1.1.481.8"

// DICOM tags used by the RT Ion Plan reader, spelled out by group and
// element so the reader does not depend on a dictionary build.
var (
	tagModality            = tag.Tag{Group: 0x0008, Element: 0x0060}
	tagSOPClassUID         = tag.Tag{Group: 0x0008, Element: 0x0016}
	tagSOPInstanceUID      = tag.Tag{Group: 0x0008, Element: 0x0018}
	tagPatientName         = tag.Tag{Group: 0x0010, Element: 0x0010}
	tagPatientID           = tag.Tag{Group: 0x0010, Element: 0x0020}
	tagRTPlanLabel         = tag.Tag{Group: 0x300A, Element: 0x0002}
	tagRTPlanDate          = tag.Tag{Group: 0x300A, Element: 0x0006}
	tagFractionGroupSeq    = tag.Tag{Group: 0x300A, Element: 0x0070}
	tagNumberOfBeams       = tag.Tag{Group: 0x300A, Element: 0x0080}
	tagReferencedBeamSeq   = tag.Tag{Group: 0x300C, Element: 0x0004}
	tagBeamDose            = tag.Tag{Group: 0x300A, Element: 0x0084}
	tagBeamMeterset        = tag.Tag{Group: 0x300A, Element: 0x0086}
	tagIonBeamSeq          = tag.Tag{Group: 0x300A, Element: 0x03A2}
	tagNControlPoints      = tag.Tag{Group: 0x300A, Element: 0x0110}
	tagFinalCumulativeMW   = tag.Tag{Group: 0x300A, Element: 0x010E}
	tagIonControlPointSeq  = tag.Tag{Group: 0x300A, Element: 0x03A8}
	tagRangeShifterSeq     = tag.Tag{Group: 0x300A, Element: 0x0314}
	tagRangeShifterNumber  = tag.Tag{Group: 0x300A, Element: 0x0316}
	tagRangeShifterID      = tag.Tag{Group: 0x300A, Element: 0x0318}
	tagRangeShifterType    = tag.Tag{Group: 0x300A, Element: 0x0320}
	tagNominalBeamEnergy   = tag.Tag{Group: 0x300A, Element: 0x0114}
	tagGantryAngle         = tag.Tag{Group: 0x300A, Element: 0x011E}
	tagPatientSupportAngle = tag.Tag{Group: 0x300A, Element: 0x0122}
	tagIsocenterPosition   = tag.Tag{Group: 0x300A, Element: 0x012C}
	tagSnoutPosition       = tag.Tag{Group: 0x300A, Element: 0x030D}
	tagRSSettingsSeq       = tag.Tag{Group: 0x300A, Element: 0x0360}
	tagRSSetting           = tag.Tag{Group: 0x300A, Element: 0x0362}
	tagIsoToRSDistance     = tag.Tag{Group: 0x300A, Element: 0x0364}
	tagRSWET               = tag.Tag{Group: 0x300A, Element: 0x0366}
	tagLSDSettingsSeq      = tag.Tag{Group: 0x300A, Element: 0x0370}
	tagIsoToLSDDistance    = tag.Tag{Group: 0x300A, Element: 0x0374}
	tagNScanSpotPositions  = tag.Tag{Group: 0x300A, Element: 0x0392}
	tagScanSpotPositionMap = tag.Tag{Group: 0x300A, Element: 0x0394}
	tagScanSpotMeterset    = tag.Tag{Group: 0x300A, Element: 0x0396}
	tagScanningSpotSize    = tag.Tag{Group: 0x300A, Element: 0x0398}
	tagNumberOfPaintings   = tag.Tag{Group: 0x300A, Element: 0x039A}
	tagReferencedRSNumber  = tag.Tag{Group: 0x300C, Element: 0x0100}
)

// rsCatalog maps the range shifter IDs seen in clinical plans to their
// physical build. Unknown IDs are rejected rather than guessed.
var rsCatalog = map[string]struct {
	thickness float64 // mm
	material  string
}{
	"RS_4_CM": {thickness: 40.0, material: "Lexan"},
	"RS_2_CM": {thickness: 20.0, material: "Lexan"},
	"RS30MM":  {thickness: 30.0, material: "Lexan"},
}

// ReadPlanDICOM reads a DICOM RT Ion Plan. Control points come in pairs per
// energy layer; only the first of each pair carries the spot map, so layers
// with zero total meterset are skipped and the rest renumbered
// consecutively.
func ReadPlanDICOM(name string) (*Plan, error) {
	ds, err := dicom.ParseFile(name, nil)
	if err != nil {
		return nil, Error{ErrMalformedPlan, err.Error(), name, []string{"ReadPlanDICOM"}, true}
	}
	root := ds.Elements
	if m := dsString(root, tagModality); m != "RTPLAN" {
		return nil, Error{ErrMalformedPlan, "not an RTPLAN, modality " + m, name, []string{"ReadPlanDICOM"}, true}
	}
	if c := dsString(root, tagSOPClassUID); c != rtIonPlanSOPClass {
		return nil, Error{ErrMalformedPlan, "unexpected SOP class " + c, name, []string{"ReadPlanDICOM"}, true}
	}
	plan := &Plan{
		UID:         dsString(root, tagSOPInstanceUID),
		PatientID:   dsString(root, tagPatientID),
		PatientName: dsString(root, tagPatientName),
		Label:       dsString(root, tagRTPlanLabel),
		Date:        dsString(root, tagRTPlanDate),
		Scaling:     1.0,
	}

	groups := dsSequence(root, tagFractionGroupSeq)
	if len(groups) == 0 {
		return nil, Error{ErrMalformedPlan, "no fraction group", name, []string{"ReadPlanDICOM"}, true}
	}
	nFields, err := dsInt(groups[0], tagNumberOfBeams)
	if err != nil {
		return nil, Error{ErrMalformedPlan, err.Error(), name, []string{"ReadPlanDICOM"}, true}
	}
	for i, rb := range dsSequence(groups[0], tagReferencedBeamSeq) {
		field := &Field{Number: i + 1, Scaling: 1.0, SOPInstanceUID: plan.UID}
		field.Dose, _ = dsFloat(rb, tagBeamDose)
		if field.CumMU, err = dsFloat(rb, tagBeamMeterset); err != nil {
			return nil, Error{ErrMalformedPlan,
				fmt.Sprintf("field %d: %v", i+1, err), name, []string{"ReadPlanDICOM"}, true}
		}
		plan.Fields = append(plan.Fields, field)
	}
	beams := dsSequence(root, tagIonBeamSeq)
	if len(beams) != nFields || len(plan.Fields) != nFields {
		return nil, Error{ErrMalformedPlan,
			fmt.Sprintf("%d beams for %d announced fields", len(beams), nFields),
			name, []string{"ReadPlanDICOM"}, true}
	}
	for i, beam := range beams {
		if err := readIonBeam(plan.Fields[i], beam); err != nil {
			return nil, Error{ErrMalformedPlan,
				fmt.Sprintf("field %d: %v", i+1, err), name, []string{"ReadPlanDICOM"}, true}
		}
	}
	log.Infof("read DICOM plan %q with %d fields, %d layers, %d spots",
		plan.Label, plan.NFields(), plan.NLayers(), plan.NSpots())
	return plan, nil
}

// readIonBeam fills one field from its IonBeamSequence item. Geometry
// attributes appear only in the first control point of a pair; they are
// carried forward so every layer ends up fully described.
func readIonBeam(field *Field, beam []*dicom.Element) error {
	final, err := dsFloat(beam, tagFinalCumulativeMW)
	if err != nil {
		return err
	}
	if final == 0 {
		return fmt.Errorf("final cumulative meterset weight is zero")
	}
	field.MetersetWeightFinal = final
	field.MetersetPerWeight = field.CumMU / final

	shifters := map[int]RangeShifter{}
	for _, item := range dsSequence(beam, tagRangeShifterSeq) {
		rs, err := readRangeShifter(item)
		if err != nil {
			return err
		}
		shifters[rs.Number] = rs
	}

	var (
		sadX, sadY    float64
		snout         float64
		isocenter     [3]float64
		gantry, couch float64
		cumMU         float64
	)
	layerNr := 1
	for _, icp := range dsSequence(beam, tagIonControlPointSeq) {
		if lss := dsSequence(icp, tagLSDSettingsSeq); len(lss) == 2 {
			if sadX, err = dsFloat(lss[0], tagIsoToLSDDistance); err != nil {
				return err
			}
			if sadY, err = dsFloat(lss[1], tagIsoToLSDDistance); err != nil {
				return err
			}
		} else if len(lss) != 0 {
			return fmt.Errorf("lateral spreading device settings: %d items, want 2", len(lss))
		}
		if v, err := dsFloat(icp, tagSnoutPosition); err == nil {
			snout = v
		}
		if iso, err := dsFloats(icp, tagIsocenterPosition); err == nil && len(iso) == 3 {
			copy(isocenter[:], iso)
		}
		if v, err := dsFloat(icp, tagGantryAngle); err == nil {
			gantry = v
		}
		if v, err := dsFloat(icp, tagPatientSupportAngle); err == nil {
			couch = v
		}
		for _, rss := range dsSequence(icp, tagRSSettingsSeq) {
			if dsString(rss, tagRSSetting) != "IN" {
				continue
			}
			nr, err := dsInt(rss, tagReferencedRSNumber)
			if err != nil {
				return err
			}
			rs, ok := shifters[nr]
			if !ok {
				return fmt.Errorf("range shifter %d referenced but not declared", nr)
			}
			rs.Inserted = true
			rs.WET, _ = dsFloat(rss, tagRSWET)
			rs.IsocenterDistance, _ = dsFloat(rss, tagIsoToRSDistance)
			field.RangeShifter = &rs
		}

		weights, err := dsFloats(icp, tagScanSpotMeterset)
		if err != nil {
			continue // second control point of a pair
		}
		energy, err := dsFloat(icp, tagNominalBeamEnergy)
		if err != nil {
			return err
		}
		nspots, err := dsInt(icp, tagNScanSpotPositions)
		if err != nil {
			return err
		}
		positions, err := dsFloats(icp, tagScanSpotPositionMap)
		if err != nil {
			return err
		}
		if len(positions) != 2*nspots || len(weights) != nspots {
			return fmt.Errorf("layer at %g MeV: %d positions and %d weights for %d spots",
				energy, len(positions), len(weights), nspots)
		}
		var sizeX, sizeY float64
		if sizes, err := dsFloats(icp, tagScanningSpotSize); err == nil && len(sizes) == 2 {
			sizeX, sizeY = sizes[0], sizes[1]
		}
		repaint, _ := dsInt(icp, tagNumberOfPaintings)

		layerMU := 0.0
		spots := make([]Spot, nspots)
		for j := 0; j < nspots; j++ {
			mu := weights[j] * field.MetersetPerWeight
			layerMU += mu
			spots[j] = Spot{
				X: positions[2*j], Y: positions[2*j+1],
				MU: mu, SizeX: sizeX, SizeY: sizeY,
			}
		}
		if layerMU <= 0 {
			log.Debugf("skipping empty layer at %g MeV", energy)
			continue
		}
		cumMU += layerMU
		field.Layers = append(field.Layers, &Layer{
			Spots:          spots,
			EnergyNominal:  energy,
			EnergyMeasured: energy,
			CumMU:          cumMU,
			Repaint:        repaint,
			Isocenter:      isocenter,
			GantryAngle:    gantry,
			CouchAngle:     couch,
			SnoutPosition:  snout,
			SADX:           sadX,
			SADY:           sadY,
			Number:         layerNr,
		})
		layerNr++
	}
	return nil
}

func readRangeShifter(item []*dicom.Element) (RangeShifter, error) {
	nr, err := dsInt(item, tagRangeShifterNumber)
	if err != nil {
		return RangeShifter{}, fmt.Errorf("range shifter number: %v", err)
	}
	id := dsString(item, tagRangeShifterID)
	if id == "" {
		return RangeShifter{}, fmt.Errorf("range shifter %d has no ID", nr)
	}
	entry, ok := rsCatalog[id]
	if !ok {
		return RangeShifter{}, fmt.Errorf("unknown range shifter ID %q", id)
	}
	return RangeShifter{
		ID:        id,
		Number:    nr,
		Type:      dsString(item, tagRangeShifterType),
		Thickness: entry.thickness,
		Material:  entry.material,
	}, nil
}

// The helpers below coerce DICOM element values. Decimal strings (DS/IS)
// arrive as string slices, binary floats as float64 slices and unsigned
// shorts as int slices; each helper accepts all spellings of its target
// type.

func dsFind(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, e := range elems {
		if e.Tag == t {
			return e
		}
	}
	return nil
}

func dsString(elems []*dicom.Element, t tag.Tag) string {
	e := dsFind(elems, t)
	if e == nil {
		return ""
	}
	if ss, ok := e.Value.GetValue().([]string); ok && len(ss) > 0 {
		return strings.TrimSpace(ss[0])
	}
	return ""
}

func dsFloats(elems []*dicom.Element, t tag.Tag) ([]float64, error) {
	e := dsFind(elems, t)
	if e == nil {
		return nil, fmt.Errorf("missing element (%04X,%04X)", t.Group, t.Element)
	}
	switch v := e.Value.GetValue().(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, nil
	case []string:
		out := make([]float64, len(v))
		for i, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("element (%04X,%04X): %v", t.Group, t.Element, err)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("element (%04X,%04X): unexpected value type", t.Group, t.Element)
}

func dsFloat(elems []*dicom.Element, t tag.Tag) (float64, error) {
	vs, err := dsFloats(elems, t)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("element (%04X,%04X): empty", t.Group, t.Element)
	}
	return vs[0], nil
}

func dsInt(elems []*dicom.Element, t tag.Tag) (int, error) {
	v, err := dsFloat(elems, t)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// dsSequence returns the item element lists of a sequence element, or nil if
// the element is absent.
func dsSequence(elems []*dicom.Element, t tag.Tag) [][]*dicom.Element {
	e := dsFind(elems, t)
	if e == nil {
		return nil
	}
	items, ok := e.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		if sub, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, sub)
		}
	}
	return out
}
