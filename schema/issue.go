package schema

import "go.uber.org/multierr"

// Issue is one routed meta failure or validation error. Issues are
// collected, never thrown.
type Issue struct {
	// Key is the field the issue belongs to.
	Key string
	// Meta names the meta that produced the issue: "type", "required",
	// "validate", "compute", "readonly", "disabled", "locked", or the
	// failing meta's name.
	Meta string
	// At is the validator index for validate issues, -1 otherwise.
	At int
	// Err is the underlying error when one exists.
	Err error
	// Message is the resolved human message.
	Message string
}

func (i *Issue) Error() string {
	if i.Message != "" {
		return i.Message
	}
	if i.Err != nil {
		return i.Err.Error()
	}
	return i.Meta + " failed at " + i.Key
}

// Combine folds a list of issues into one error, nil when empty.
func Combine(issues []*Issue) error {
	errs := make([]error, 0, len(issues))
	for _, iss := range issues {
		errs = append(errs, iss)
	}
	return multierr.Combine(errs...)
}
