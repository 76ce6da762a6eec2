/*
 * racehorse.go, part of gopbs.
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
	"strings"
	"time"

	"github.com/gopbs/gopbs"
)

// Racehorse generates a Varian Racehorse mode spot list for one energy
// layer. The format is mono-energetic, so a field exports to one file per
// layer; name labels the list in its header.
func Racehorse(field *pbs.Field, layer *pbs.Layer, name string) string {
	var b strings.Builder
	b.WriteString("* ----- RACEHORSE Spot List -----\n")
	fmt.Fprintf(&b, "* Field: %02d  Layer: %02d\n\n", field.Number, layer.Number)
	b.WriteString("#HEADER\n")
	fmt.Fprintf(&b, "NAME, %s\n", name)
	fmt.Fprintf(&b, "DATE, %s\n", time.Now().Format("02-01-2006"))
	b.WriteString("CREATORNAME, gopbs\n")
	fmt.Fprintf(&b, "CREATORVERSION, %s\n\n", pbs.Version)
	b.WriteString("#VALUES\n")
	b.WriteString("Index;Position x;Position y;Dose\n")
	for n, spot := range layer.Spots {
		fmt.Fprintf(&b, "%2d,%8.2f,%8.2f,%8.2f\n", n, spot.X, spot.Y, spot.MU)
	}
	return b.String()
}
