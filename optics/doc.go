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
Package optics implements paraxial transport of the transverse phase space of
a scanned proton beam. A beam axis is described by its second moments (size,
angular divergence and their covariance); free-space drift maps those moments
from one axial plane to another. The two transverse axes of a beam are always
transported independently, with the same drift distance, so the package works
on one axis at a time.
*/
package optics
