/*
 * planplot.go, part of gopbs.
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

// Package planplot draws diagnostic plots for treatment plans and beam
// model tables: calibration curves against energy and per-layer spot maps.
package planplot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gopbs/gopbs"
	"github.com/gopbs/gopbs/beammodel"
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

// CalibrationCurves plots the energy dependence of the beam model: spot
// sigmas, divergences and protons per MU against nominal energy. Three PNG
// files are written, basename_sigma.png, basename_divergence.png and
// basename_protons.png.
func CalibrationCurves(t *beammodel.Table, basename string) error {
	rows := t.Rows()
	energies := make([]float64, len(rows))
	for i, r := range rows {
		energies[i] = r.NominalEnergy
	}
	curve := func(f func(beammodel.Row) float64) plotter.XYs {
		pts := make(plotter.XYs, len(rows))
		for i, r := range rows {
			pts[i].X = energies[i]
			pts[i].Y = f(r)
		}
		return pts
	}

	p := basicPlot("Spot size at reference plane", "Nominal energy (MeV)", "Sigma (mm)")
	err := plotutil.AddLinePoints(p,
		"sigma x", curve(func(r beammodel.Row) float64 { return r.SigmaX }),
		"sigma y", curve(func(r beammodel.Row) float64 { return r.SigmaY }))
	if err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}
	if err := p.Save(14*vg.Centimeter, 10*vg.Centimeter, basename+"_sigma.png"); err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}

	p = basicPlot("Beam divergence", "Nominal energy (MeV)", "Sigma' (rad)")
	err = plotutil.AddLinePoints(p,
		"sigma' x", curve(func(r beammodel.Row) float64 { return r.SigmaXPrime }),
		"sigma' y", curve(func(r beammodel.Row) float64 { return r.SigmaYPrime }))
	if err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}
	if err := p.Save(14*vg.Centimeter, 10*vg.Centimeter, basename+"_divergence.png"); err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}

	p = basicPlot("MU calibration", "Nominal energy (MeV)", "Protons per MU")
	err = plotutil.AddLinePoints(p,
		"protons/MU", curve(func(r beammodel.Row) float64 { return r.ProtonsPerMU }))
	if err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}
	if err := p.Save(14*vg.Centimeter, 10*vg.Centimeter, basename+"_protons.png"); err != nil {
		return fmt.Errorf("planplot.CalibrationCurves: %v", err)
	}
	return nil
}

// SpotMap draws the spots of one energy layer in the isocenter plane, glyph
// area proportional to the spot's monitor units.
func SpotMap(l *pbs.Layer, filename string) error {
	if l.NSpots() == 0 {
		return fmt.Errorf("planplot.SpotMap: layer %d has no spots", l.Number)
	}
	pts := make(plotter.XYs, len(l.Spots))
	maxMU := 0.0
	for i, s := range l.Spots {
		pts[i].X = s.X
		pts[i].Y = s.Y
		if s.MU > maxMU {
			maxMU = s.MU
		}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("planplot.SpotMap: %v", err)
	}
	spots := l.Spots
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		r := vg.Points(1 + 5*math.Sqrt(spots[i].MU/maxMU))
		return draw.GlyphStyle{
			Color:  color.RGBA{R: 196, B: 64, A: 255},
			Radius: r,
			Shape:  draw.CircleGlyph{},
		}
	}
	p := basicPlot(fmt.Sprintf("Layer %d, %.1f MeV", l.Number, l.EnergyNominal),
		"x (mm)", "y (mm)")
	p.Add(sc)
	if err := p.Save(12*vg.Centimeter, 12*vg.Centimeter, filename); err != nil {
		return fmt.Errorf("planplot.SpotMap: %v", err)
	}
	return nil
}
