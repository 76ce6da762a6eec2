/*
 * export.go, part of gopbs.
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
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gopbs/gopbs"
	"github.com/gopbs/gopbs/beammodel"
)

// Output format names accepted by ExportPlan.
const (
	FormatTopas     = "topas"
	FormatRacehorse = "racehorse"
)

// ExportPlan writes the Monte Carlo decks of a plan. base names the output
// files: field number (and for Racehorse, layer number) suffixes are
// inserted before the extension, so "out.txt" becomes "out_field01.txt".
// fieldNr selects a single field (1-based); fieldNr < 1 exports all of them.
func ExportPlan(plan *pbs.Plan, table *beammodel.Table, base string,
	fieldNr int, format string, opts Options) error {
	fields := plan.Fields
	if fieldNr >= 1 {
		if fieldNr > plan.NFields() {
			return Error{ErrNoSuchField,
				fmt.Sprintf("field %d of %d", fieldNr, plan.NFields()), "", []string{"ExportPlan"}, true}
		}
		fields = plan.Fields[fieldNr-1 : fieldNr]
	}
	for _, field := range fields {
		switch format {
		case FormatTopas:
			text, err := Topas(field, table, opts)
			if err != nil {
				return errDecorate(err, "ExportPlan")
			}
			name := outPath(base, field.Number, "")
			if err := os.WriteFile(name, []byte(text), 0644); err != nil {
				return Error{ErrWriteFailed, err.Error(), name, []string{"ExportPlan"}, true}
			}
			log.Debugf("exported field %d to %s", field.Number, name)
		case FormatRacehorse:
			for _, layer := range field.Layers {
				name := outPath(base, field.Number, fmt.Sprintf("_layer%02d", layer.Number))
				text := Racehorse(field, layer, name)
				if err := os.WriteFile(name, []byte(text), 0644); err != nil {
					return Error{ErrWriteFailed, err.Error(), name, []string{"ExportPlan"}, true}
				}
				log.Debugf("exported field %d layer %d to %s", field.Number, layer.Number, name)
			}
		default:
			return Error{ErrUnknownFormat, format, "", []string{"ExportPlan"}, true}
		}
	}
	return nil
}

// outPath inserts the field (and optional extra) suffix before the
// extension of base.
func outPath(base string, fieldNr int, extra string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_field%02d%s%s", stem, fieldNr, extra, ext)
}
