package beammodel

import "fmt"

// Error is the general structure for beam model errors. None of them is
// retryable: they all point at a structurally invalid calibration resource or
// a query outside its physical validity.
type Error struct {
	message  string
	detail   string
	filename string // the resource with problems, or empty if none
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.detail == "" {
		return fmt.Sprintf("beam model %s error: %s", err.filename, err.message)
	}
	return fmt.Sprintf("beam model %s error: %s: %s", err.filename, err.message, err.detail)
}

// Message returns the message constant the error was built from.
func (err Error) Message() string { return err.message }

// FileName returns the resource the failing table was read from.
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
	ErrMalformedTable   = "malformed calibration table"
	ErrEmptyTable       = "calibration table has no rows"
	ErrEnergyOutOfRange = "nominal energy outside the calibrated range"
)

// errDecorate asserts that err carries a Decorate method and decorates it
// with the caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2, ok := err.(interface{ Decorate(string) []string })
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err
}
