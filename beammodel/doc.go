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
Package beammodel reads and interpolates measured calibration tables for a
scanned proton beam line.

A beam model is a CSV resource with one row per measured nominal energy and
ten columns, in this fixed order:

	nominal energy [MeV], realized energy [MeV], energy spread (1 sigma) [MeV],
	protons per monitor unit, sigma_x [mm], sigma_y [mm], sigma_x' [rad],
	sigma_y' [rad], cov(x,x'), cov(y,y')

Lines starting with '#' and a single non-numeric header line are skipped.
Nominal energies must be strictly increasing. Files with the .zst extension
are decompressed transparently.

All rows of a table are measured at one fixed plane upstream of the isocenter;
that reference distance is not a column but configuration, passed at read time
(millimetres, isocenter = 0, positive upstream).

Queries between measured energies are answered by piecewise-linear
interpolation of every column independently; queries outside the measured
range fail, since a beam model has no physical validity beyond its
measurements.
*/
package beammodel
