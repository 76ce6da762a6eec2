package optics

import "fmt"

// Error is the error type for inconsistent phase-space transports.
type Error struct {
	message  string
	detail   string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("optics error: %s: %s", err.message, err.detail)
}

// Message returns the message constant the error was built from, so callers
// can tell error kinds apart without string matching on details.
func (err Error) Message() string { return err.message }

// Decorate adds new information to the error
func (E Error) Decorate(deco string) []string {
	// This method does not use a pointer receiver, but E.deco is a slice,
	// hence a pointer itself, so the append is visible to the caller.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	ErrInvalidTransport = "drift produced a significantly negative variance"
)
