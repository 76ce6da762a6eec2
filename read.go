/*
 * read.go, part of gopbs.
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

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ReadPlan reads a treatment plan, choosing the reader from the file
// extension. Supported are IBA PLD files (.pld) and DICOM RT Ion Plans
// (.dcm). If name is a directory, the first plan file found in it is read,
// preferring RN*.dcm over *.pld.
func ReadPlan(name string) (*Plan, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, Error{ErrMalformedPlan, err.Error(), name, []string{"ReadPlan"}, true}
	}
	if info.IsDir() {
		name, err = findPlanFile(name)
		if err != nil {
			return nil, errDecorate(err, "ReadPlan")
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pld":
		return ReadPlanPLD(name)
	case ".dcm":
		return ReadPlanDICOM(name)
	}
	return nil, Error{ErrUnsupportedFormat, filepath.Ext(name), name, []string{"ReadPlan"}, true}
}

func findPlanFile(dir string) (string, error) {
	var candidates []string
	for _, pattern := range []string{"RN*.dcm", "*.pld"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", Error{ErrMalformedPlan, err.Error(), dir, []string{"findPlanFile"}, true}
		}
		candidates = append(candidates, m...)
	}
	if len(candidates) == 0 {
		return "", Error{ErrMalformedPlan, "no plan files in directory", dir, []string{"findPlanFile"}, true}
	}
	if len(candidates) > 1 {
		log.Warnf("multiple plan files in %s, using %s", dir, candidates[0])
	}
	return candidates[0], nil
}
