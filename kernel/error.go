package kernel

// Error describes a kernel error. Kernel errors are defined as package-level
// variables that point to an Error value so that failure paths (including the
// ones reachable from interrupt handlers) never need to allocate, and callers
// can compare the returned pointer against the sentinel they expect.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
