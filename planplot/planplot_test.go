package planplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopbs/gopbs"
	"github.com/gopbs/gopbs/beammodel"
)

func TestCalibrationCurves(Te *testing.T) {
	rows := []beammodel.Row{
		{NominalEnergy: 70, Energy: 70.2, EnergySpread: 0.7, ProtonsPerMU: 1.1e8,
			SigmaX: 3.0, SigmaY: 3.2, SigmaXPrime: 0.010, SigmaYPrime: 0.011},
		{NominalEnergy: 100, Energy: 100.3, EnergySpread: 0.9, ProtonsPerMU: 1.3e8,
			SigmaX: 2.5, SigmaY: 2.7, SigmaXPrime: 0.015, SigmaYPrime: 0.016},
	}
	table, err := beammodel.New(rows, 500)
	if err != nil {
		Te.Fatal(err)
	}
	base := filepath.Join(Te.TempDir(), "bm")
	if err := CalibrationCurves(table, base); err != nil {
		Te.Fatal(err)
	}
	for _, suffix := range []string{"_sigma.png", "_divergence.png", "_protons.png"} {
		if _, err := os.Stat(base + suffix); err != nil {
			Te.Errorf("missing plot %s: %v", suffix, err)
		}
	}
}

func TestSpotMap(Te *testing.T) {
	layer := &pbs.Layer{
		Number:        1,
		EnergyNominal: 70,
		Spots: []pbs.Spot{
			{X: -10, Y: 0, MU: 1}, {X: 0, Y: 0, MU: 2}, {X: 10, Y: 5, MU: 0.5},
		},
	}
	name := filepath.Join(Te.TempDir(), "layer01.png")
	if err := SpotMap(layer, name); err != nil {
		Te.Fatal(err)
	}
	if _, err := os.Stat(name); err != nil {
		Te.Error(err)
	}
}

func TestSpotMapEmptyLayer(Te *testing.T) {
	if err := SpotMap(&pbs.Layer{Number: 2}, "nowhere.png"); err == nil {
		Te.Error("expected an error for an empty layer")
	}
}
