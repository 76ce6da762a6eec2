/*
 * doc.go, part of gopbs.
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

/*
Package pbs converts clinical pencil-beam-scanning proton therapy plans into
particle source descriptions for Monte Carlo transport codes.

The package provides the plan data model (Plan, Field, Layer, Spot), readers
for DICOM RT Ion plans and IBA PLD spot lists, and the per-spot resolution
that combines a measured beam model (package beammodel) with paraxial drift
transport (package optics) into the full transverse phase-space description of
every spot at an operator-chosen plane. The subpackage mc writes the resolved
sources as input decks for the supported Monte Carlo engines.

Distances along the beam axis are measured in mm upstream of the isocenter:
the isocenter is 0 and positive values are toward the source. Both the beam
model's reference plane and the requested output plane use this convention.
*/
package pbs

// Version of the gopbs library, recorded in generated input decks.
const Version = "0.4.1"
