/*
 * topas.go, part of gopbs.
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

package mc

import (
	"fmt"
	"math"
	"os/user"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gopbs/gopbs"
	"github.com/gopbs/gopbs/beammodel"
)

// Topas generates a TOPAS parameter file for one field. Every spot becomes
// one step of the time feature sequence: the emittance source parameters
// (energy, spread, position, angle, sigmas, correlations, weight) are
// emitted as per-spot value arrays indexed by simulated time.
func Topas(field *pbs.Field, table *beammodel.Table, opts Options) (string, error) {
	opts = opts.withDefaults()
	sources, err := pbs.ExportField(field, table, opts.OutputDistance)
	if err != nil {
		return "", errDecorate(err, "Topas")
	}
	n := len(sources)
	total := 0.0
	for _, s := range sources {
		total += s.Protons
	}
	if total <= 0 {
		return "", Error{ErrNothingToWrite,
			fmt.Sprintf("field %d has no particle budget; was the beam model applied?", field.Number),
			"", []string{"Topas"}, true}
	}
	nstatScale := total * opts.Scale / float64(opts.NStat)
	logFieldData(field, total, nstatScale, opts)

	// Index-aligned per-spot arrays. The nominal energies and the SAD
	// projection need layer attributes, so the layers are walked in the
	// same order ExportField resolves them.
	energies := make([]float64, n)
	espreads := make([]float64, n)
	posx := make([]float64, n)
	angx := make([]float64, n)
	posy := make([]float64, n)
	angy := make([]float64, n)
	sigx := make([]float64, n)
	sigy := make([]float64, n)
	sigxp := make([]float64, n)
	sigyp := make([]float64, n)
	corx := make([]float64, n)
	cory := make([]float64, n)
	weights := make([]float64, n)

	i := 0
	for _, layer := range field.Layers {
		for range layer.Spots {
			s := sources[i]
			if opts.Nominal {
				energies[i] = layer.EnergyNominal
			} else {
				energies[i] = s.Energy
			}
			espreads[i] = s.EnergySpread
			posx[i], angx[i] = project(s.X, layer.SADX, opts.OutputDistance)
			posy[i], angy[i] = project(s.Y, layer.SADY, opts.OutputDistance)
			sigx[i] = s.XSpace.Sigma
			sigy[i] = s.YSpace.Sigma
			sigxp[i] = s.XSpace.SigmaPrime
			sigyp[i] = s.YSpace.SigmaPrime
			corx[i] = s.XSpace.Correlation()
			cory[i] = s.YSpace.Correlation()
			weights[i] = s.Protons / nstatScale
			i++
		}
	}

	var b strings.Builder
	b.WriteString(topasHeader(field, total, nstatScale, opts.NStat))
	b.WriteString(topasVariables(field))
	if opts.IncludeSetup {
		b.WriteString(topasSetup())
		b.WriteString(topasWorld())
		b.WriteString(topasGantry())
	}
	b.WriteString(topasBeamPosition(opts.OutputDistance))
	b.WriteString(topasRangeShifter(field.RangeShifter))
	b.WriteString(topasSource())

	b.WriteString("##############################################\n")
	b.WriteString("###  T  I  M  E    F  E  A  T  U  R  E  S  ###\n")
	b.WriteString("##############################################\n\n")
	fmt.Fprintf(&b, "i:Tf/NumberOfSequentialTimes         = %d\n", n)
	fmt.Fprintf(&b, "d:Tf/TimelineStart                   = 1 s\n")
	fmt.Fprintf(&b, "d:Tf/TimelineEnd                     = %d s\n\n", n+1)
	b.WriteString(timeFeature("Energy", energies, 3, "MeV"))
	b.WriteString(timeFeature("EnergySpread", espreads, 5, ""))
	b.WriteString(timeFeature("spotPositionX", posx, 2, "mm"))
	b.WriteString(timeFeature("spotAngleX", angx, 3, "deg"))
	b.WriteString(timeFeature("spotPositionY", posy, 2, "mm"))
	b.WriteString(timeFeature("spotAngleY", angy, 3, "deg"))
	b.WriteString(timeFeature("SigmaX", sigx, 5, "mm"))
	b.WriteString(timeFeature("SigmaY", sigy, 5, "mm"))
	b.WriteString(timeFeature("SigmaXprime", sigxp, 5, ""))
	b.WriteString(timeFeature("SigmaYprime", sigyp, 5, ""))
	b.WriteString(timeFeature("CorrelationX", corx, 5, ""))
	b.WriteString(timeFeature("CorrelationY", cory, 5, ""))
	b.WriteString(timeFeature("spotWeight", weights, 0, ""))
	return b.String(), nil
}

// project maps a spot's isocenter position to the source plane. With a
// scanning magnet at sad mm, the pencil beam crosses the plane dist mm
// upstream at a reduced offset and a deflection angle. Plans without SAD
// information (PLD files) keep the isocenter position and a parallel beam.
func project(x, sad, dist float64) (pos, ang float64) {
	if sad == 0 {
		return x, 0
	}
	return x * (sad - dist) / sad, math.Atan(x/sad) * pbs.Rad2Deg
}

func logFieldData(field *pbs.Field, total, nstatScale float64, opts Options) {
	log.Infof("Source plane:            %g mm upstream of isocenter", opts.OutputDistance)
	if len(field.Layers) > 0 {
		log.Infof("SAD X/Y:                 %.2f mm / %.2f mm", field.Layers[0].SADX, field.Layers[0].SADY)
	}
	log.Infof("Proton budget:           %.3e protons", total)
	log.Infof("Requested histories:     %.3e", float64(opts.NStat))
	log.Infof("Scaling factor:          %.4e", nstatScale)
	log.Infof("Number of spots:         %d", field.NSpots())
	log.Infof("Number of energy layers: %d", field.NLayers())
	log.Infof("Beam meterset:           %.2f MU", field.CumMU)
}

func topasHeader(field *pbs.Field, total, nstatScale float64, nstat int) string {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	lines := []string{
		fmt.Sprintf("# Topas input file for field %d", field.Number),
		"# " + strings.Repeat("-", 40),
		"# SOP_INSTANCE_UID " + field.SOPInstanceUID,
		"# ",
		fmt.Sprintf("# TOTAL_NUMBER_OF_PARTICLES: %.0f", total),
		fmt.Sprintf("# TOTAL_MU: %.2f", field.CumMU),
		fmt.Sprintf("# REQUESTED_HISTORIES: %d", nstat),
		fmt.Sprintf("# PARTICLE_SCALING: %.2f", nstatScale),
		"#",
		fmt.Sprintf("# Generated %s by user '%s'", time.Now().Format("2006-01-02 15:04:05"), username),
		"# using gopbs " + pbs.Version,
		"#\n",
	}
	return strings.Join(lines, "\n")
}

// topasVariables emits the treatment geometry of the field. Per-layer
// variation of isocenter, angles or snout is not supported; the first layer
// speaks for the field.
func topasVariables(field *pbs.Field) string {
	var iso [3]float64
	var gantry, couch, snout float64
	if len(field.Layers) > 0 {
		l := field.Layers[0]
		iso = l.Isocenter
		gantry = l.GantryAngle
		couch = l.CouchAngle
		snout = l.SnoutPosition
	}
	lines := []string{
		"##############################################",
		"###           V A R I A B L E S            ###",
		"##############################################",
		"",
		fmt.Sprintf("d:Rt/Plan/IsoCenterX                 = %.2f mm", iso[0]),
		fmt.Sprintf("d:Rt/Plan/IsoCenterY                 = %.2f mm", iso[1]),
		fmt.Sprintf("d:Rt/Plan/IsoCenterZ                 = %.2f mm", iso[2]),
		fmt.Sprintf("d:Ge/snoutPosition                   = %.2f mm", snout),
		fmt.Sprintf("d:Ge/gantryAngle                     = %.2f deg", gantry),
		fmt.Sprintf("d:Ge/couchAngle                      = %.2f deg", couch),
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasSetup() string {
	lines := []string{
		"##############################################",
		"###         T O P A S    S E T U P         ###",
		"##############################################",
		"i:Ts/ShowHistoryCountAtInterval         = 100000",
		"i:Ts/NumberOfThreads                    = 0",
		`b:Ts/DumpParameters                     = "False"`,
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasWorld() string {
	lines := []string{
		"##############################################",
		"###         W O R L D    S E T U P         ###",
		"##############################################",
		`s:Ge/World/Type            = "TsBox"`,
		`s:Ge/World/Material        = "Air"`,
		"d:Ge/World/HLX             = 90. cm",
		"d:Ge/World/HLY             = 90. cm",
		"d:Ge/World/HLZ             = 90. cm",
		`b:Ge/World/Invisible       = "True"`,
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasGantry() string {
	lines := []string{
		"##############################################",
		"###     G E O M E T R Y   G A N T R Y      ###",
		"##############################################",
		`s:Ge/Gantry/Parent                   = "World"`,
		`s:Ge/Gantry/Type                     = "Group"`,
		"d:Ge/Gantry/TransX                   = 0.00 mm",
		"d:Ge/Gantry/TransY                   = 0.00 mm",
		"d:Ge/Gantry/TransZ                   = 0.00 mm",
		"d:Ge/Gantry/RotX                     = 0.00 deg",
		"d:Ge/Gantry/RotY                     = Ge/gantryAngle deg",
		"d:Ge/Gantry/RotZ                     = 0.00 deg",
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasBeamPosition(dist float64) string {
	lines := []string{
		"##############################################",
		"###    GEOM.  B E A M   P O S I T I O N    ###",
		"##############################################",
		`s:Ge/BeamPosition/Parent             = "Gantry"`,
		`s:Ge/BeamPosition/Type               = "Group"`,
		fmt.Sprintf("d:Ge/BeamPosition/TransZ             = -%g mm", dist),
		"d:Ge/BeamPosition/TransX             = Tf/spotPositionX/Value mm",
		"d:Ge/BeamPosition/TransY             = -1.0 * Tf/spotPositionY/Value mm",
		"d:Ge/BeamPosition/RotX               = -1.0 * Tf/spotAngleY/Value deg",
		"d:Ge/BeamPosition/RotY               = -1.0 * Tf/spotAngleX/Value deg",
		"d:Ge/BeamPosition/RotZ               = 0.00 deg",
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasRangeShifter(rs *pbs.RangeShifter) string {
	if rs == nil {
		return ""
	}
	lines := []string{
		"##############################################",
		"###        R A N G E   S H I F T E R       ###",
		"##############################################",
		`s:Ge/RangeShifter/Parent             = "Gantry"`,
		`s:Ge/RangeShifter/Type               = "TsBox"`,
		fmt.Sprintf("s:Ge/RangeShifter/Material           = %q", rs.Material),
		`b:Ge/RangeShifter/Isparallel         = "True"`,
		"d:Ge/RangeShifter/HLX                = 200.00 mm",
		"d:Ge/RangeShifter/HLY                = 200.00 mm",
		fmt.Sprintf("d:Ge/RangeShifter/HLZ                = %.2f mm", rs.Thickness*0.5),
		`s:Ge/RangeShifter/Color              = "Orange"`,
		fmt.Sprintf("d:Ge/RangeShifter/TransZ             = %.2f mm", -(rs.IsocenterDistance + rs.Thickness*0.5)),
		"\n",
	}
	return strings.Join(lines, "\n")
}

func topasSource() string {
	lines := []string{
		"##############################################",
		"###               B  E  A  M               ###",
		"##############################################",
		`s:So/Field/Type                      = "Emittance"`,
		`s:So/Field/Component                 = "BeamPosition"`,
		`s:So/Field/BeamParticle              = "proton"`,
		"d:So/Field/BeamEnergy                = Tf/Energy/Value MeV",
		"u:So/Field/BeamEnergySpread          = Tf/EnergySpread/Value",
		`s:So/Field/Distribution              = "BiGaussian"`,
		"d:So/Field/SigmaX                    = Tf/SigmaX/Value mm",
		"d:So/Field/SigmaY                    = Tf/SigmaY/Value mm",
		"u:So/Field/SigmaXprime               = Tf/SigmaXprime/Value",
		"u:So/Field/SigmaYprime               = Tf/SigmaYprime/Value",
		"u:So/Field/CorrelationX              = Tf/CorrelationX/Value",
		"u:So/Field/CorrelationY              = Tf/CorrelationY/Value",
		"",
		"i:So/Field/NumberOfHistoriesInRun    = Tf/spotWeight/Value",
		"\n",
	}
	return strings.Join(lines, "\n")
}

// timeFeature renders one stepwise time feature: the step function
// declaration, the time grid (1 s per spot) and the per-spot values at the
// given decimal precision.
func timeFeature(name string, vals []float64, prec int, unit string) string {
	pre := "dv"
	if unit == "" {
		pre = "uv"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "s:Tf/%s/Function                 = \"Step\"\n", name)
	fmt.Fprintf(&b, "dv:Tf/%s/Times                   = %d ", name, len(vals))
	for i := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", i+1)
	}
	b.WriteString(" s\n")
	fmt.Fprintf(&b, "%s:Tf/%s/Values                   = %d ", pre, name, len(vals))
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.*f", prec, v)
	}
	if unit != "" {
		b.WriteString(" " + unit)
	} else {
		b.WriteString(" ")
	}
	b.WriteString("\n\n\n")
	return b.String()
}
