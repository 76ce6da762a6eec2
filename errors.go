/*
 * errors.go, part of gopbs.
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

import "fmt"

// Errorer is the interface all errors raised by gopbs packages implement.
// The Decorate method allows adding information to an error as it travels up
// the call stack without changing its type or wrapping it. Each element of
// the decoration should be a function name, optionally followed by relevant
// extra information ("FunctionName: extra info").
type Errorer interface {
	error
	Decorate(string) []string
	Critical() bool
}

// Error is the error structure for plan reading and export. All these errors
// are non-retryable: they indicate a structurally invalid plan, or a plan
// that asks more of the beam line than its calibration covers.
type Error struct {
	message  string
	detail   string
	filename string // the plan resource with problems, or empty if none
	deco     []string
	critical bool
}

func (err Error) Error() string {
	msg := err.message
	if err.detail != "" {
		msg = msg + ": " + err.detail
	}
	if err.filename == "" {
		return fmt.Sprintf("plan error: %s", msg)
	}
	return fmt.Sprintf("plan %s error: %s", err.filename, msg)
}

// Message returns the message constant the error was built from.
func (err Error) Message() string { return err.message }

// FileName returns the plan resource associated with the error.
func (err Error) FileName() string { return err.filename }

// Decorate adds new information to the error
func (E Error) Decorate(deco string) []string {
	// Not a pointer receiver, but E.deco is a slice, hence a pointer
	// itself, so the append is visible to the caller.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	ErrEmptyField        = "field contains no populated layers"
	ErrMalformedPlan     = "malformed treatment plan"
	ErrUnsupportedFormat = "unsupported plan file format"
	ErrNoBeamModel       = "no beam model applied to the plan"
	ErrNoSuchField       = "no such field in the plan"
)

// errDecorate decorates err with the caller's name if err implements
// Errorer, and returns it unchanged otherwise.
func errDecorate(err error, caller string) error {
	err2, ok := err.(Errorer)
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err2
}
