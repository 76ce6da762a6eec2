/*
 * conversion.go, part of gopbs.
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

//This provides useful conversion factors and other constants

// Conversions
const (
	Deg2Rad    = 0.0174533
	Rad2Deg    = 1 / 0.0174533
	Sigma2FWHM = 2.354820045 // 2*sqrt(2*ln 2), Gaussian sigma to full width at half maximum
	FWHM2Sigma = 1 / 2.354820045
)
