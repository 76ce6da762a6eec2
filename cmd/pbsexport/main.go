/*
 * main.go, part of gopbs.
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

// pbsexport converts pencil beam scanning treatment plans (DICOM RT Ion
// Plan or IBA PLD) into Monte Carlo engine input files using a machine
// beam model.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gopbs/gopbs"
	"github.com/gopbs/gopbs/beammodel"
	"github.com/gopbs/gopbs/config"
	"github.com/gopbs/gopbs/mc"
	"github.com/gopbs/gopbs/planplot"
)

type options struct {
	beamModel    string
	position     float64
	fieldNr      int
	diag         bool
	plots        bool
	actualEnergy bool
	scale        float64
	nstat        int
	format       string
	machine      string
	catalog      string
	verbosity    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "pbsexport <plan> [output]",
		Short: "Convert scanned proton plans to Monte Carlo source decks",
		Long: `pbsexport reads a pencil beam scanning treatment plan (DICOM RT Ion
Plan or IBA PLD), applies a machine beam model and writes Monte Carlo
input files, one per field. The default output base is plan.txt; field
and layer numbers are appended before the extension.`,
		Version:      pbs.Version,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			switch {
			case o.verbosity == 1:
				log.SetLevel(log.InfoLevel)
			case o.verbosity > 1:
				log.SetLevel(log.DebugLevel)
			default:
				log.SetLevel(log.WarnLevel)
			}
			out := "plan.txt"
			if len(args) > 1 {
				out = args[1]
			}
			return run(args[0], out, o)
		},
	}
	cmd.Flags().StringVarP(&o.beamModel, "beam-model", "b", "", "beam model CSV path (plain or .zst)")
	cmd.Flags().Float64VarP(&o.position, "beam-model-position", "p", 500.0,
		"beam model position in mm, relative to isocenter, positive upstream")
	cmd.Flags().IntVarP(&o.fieldNr, "field", "f", 0,
		"field number to export; 0 exports all fields")
	cmd.Flags().BoolVarP(&o.diag, "diag", "d", false, "print plan diagnostics and exit")
	cmd.Flags().BoolVar(&o.plots, "plots", false, "write beam model and spot map diagnostic plots")
	cmd.Flags().BoolVarP(&o.actualEnergy, "actual-energy", "a", false,
		"emit calibrated actual energies instead of nominal ones")
	cmd.Flags().Float64VarP(&o.scale, "scale", "s", 1.0, "additional particle scaling multiplier")
	cmd.Flags().IntVarP(&o.nstat, "nstat", "N", 1000000, "target number of simulation histories")
	cmd.Flags().StringVar(&o.format, "format", mc.FormatTopas, "output format: topas or racehorse")
	cmd.Flags().StringVarP(&o.machine, "machine", "m", "", "machine name to look up in the catalog")
	cmd.Flags().StringVar(&o.catalog, "catalog", "", "YAML machine catalog path")
	cmd.Flags().CountVarP(&o.verbosity, "verbosity", "v", "increase verbosity (-v info, -vv debug)")
	return cmd
}

func run(in, out string, o options) error {
	plan, err := pbs.ReadPlan(in)
	if err != nil {
		return err
	}
	if o.diag {
		fmt.Println("Plan diagnostics:")
		fmt.Print(plan)
		return nil
	}

	table, err := loadBeamModel(o)
	if err != nil {
		return err
	}
	if err := plan.ApplyBeamModel(table); err != nil {
		return err
	}

	if o.plots {
		if err := writePlots(plan, table, out); err != nil {
			return err
		}
	}

	opts := mc.Options{
		Nominal:        !o.actualEnergy,
		NStat:          o.nstat,
		Scale:          o.scale,
		OutputDistance: o.position,
	}
	return mc.ExportPlan(plan, table, out, o.fieldNr, o.format, opts)
}

// loadBeamModel reads the table from -b, or resolves a machine name through
// the catalog. An explicit path wins over the catalog.
func loadBeamModel(o options) (*beammodel.Table, error) {
	if o.beamModel != "" {
		return beammodel.Read(o.beamModel, o.position)
	}
	if o.machine == "" {
		return nil, fmt.Errorf("no beam model: use -b, or -m with a catalog")
	}
	catalogPath := o.catalog
	if catalogPath == "" {
		catalogPath = "machines.yaml"
	}
	cat, err := config.ReadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}
	m, err := cat.Machine(o.machine)
	if err != nil {
		return nil, err
	}
	return beammodel.Read(m.Model, m.ReferenceDistance)
}

func writePlots(plan *pbs.Plan, table *beammodel.Table, out string) error {
	base := trimExt(out)
	if err := planplot.CalibrationCurves(table, base+"_bm"); err != nil {
		return err
	}
	for _, field := range plan.Fields {
		for _, layer := range field.Layers {
			name := fmt.Sprintf("%s_field%02d_layer%02d.png", base, field.Number, layer.Number)
			if err := planplot.SpotMap(layer, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
