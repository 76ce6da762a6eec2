package mc

import "fmt"

// Error is the general structure for deck generation errors. They all point
// at a plan that cannot be exported as requested, so none is retryable.
type Error struct {
	message  string
	detail   string
	filename string // the output file involved, or empty if none
	deco     []string
	critical bool
}

func (err Error) Error() string {
	msg := err.message
	if err.detail != "" {
		msg = msg + ": " + err.detail
	}
	if err.filename != "" {
		return fmt.Sprintf("mc export %s error: %s", err.filename, msg)
	}
	return "mc export error: " + msg
}

// Message returns the message constant the error was built from.
func (err Error) Message() string { return err.message }

// FileName returns the output file involved in the failure.
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
	ErrNoSuchField    = "plan has no field with the requested number"
	ErrUnknownFormat  = "unknown output format"
	ErrNothingToWrite = "field resolves to no sources"
	ErrWriteFailed    = "cannot write output file"
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

// Options controls deck generation. The zero value is not usable directly;
// DefaultOptions fills in the conventional settings.
type Options struct {
	// Nominal selects the planned nominal energies for the deck instead
	// of the calibrated realized ones.
	Nominal bool
	// NStat is the number of Monte Carlo histories to request; spot
	// weights are scaled so the run delivers them in proportion.
	NStat int
	// Scale is an extra factor on the particle budget.
	Scale float64
	// OutputDistance is the plane the source is defined at, in mm
	// upstream of the isocenter.
	OutputDistance float64
	// IncludeSetup adds the standalone physics, world and gantry
	// geometry sections, making the deck runnable without a surrounding
	// parameter file.
	IncludeSetup bool
}

// DefaultOptions returns the conventional export settings: realized
// energies, one million histories, unit scaling, source plane 500 mm
// upstream.
func DefaultOptions() Options {
	return Options{NStat: 1000000, Scale: 1.0, OutputDistance: 500.0}
}

func (o Options) withDefaults() Options {
	if o.NStat <= 0 {
		o.NStat = 1000000
	}
	if o.Scale == 0 {
		o.Scale = 1.0
	}
	return o
}
