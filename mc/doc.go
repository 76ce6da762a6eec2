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
Package mc writes Monte Carlo engine input files from resolved treatment
plans. Two output dialects are supported: TOPAS parameter files, where each
spot becomes one step of a time feature sequence driving an emittance
source, and Varian Racehorse spot lists, one file per energy layer.

The deck generators are pure string builders; only ExportPlan touches the
filesystem.
*/
package mc
