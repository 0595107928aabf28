package fingerprint

import (
	"errors"
	"fmt"
)

// ErrMissingData is returned when no fingerprint source was supplied at all.
var ErrMissingData = errors.New("no fingerprint data provided")

// MalformedFingerprintError describes a document that cannot be normalized. The run
// that produced it must abort; documents are never skipped.
type MalformedFingerprintError struct {
	Key    string
	Path   string
	Source string
	Field  string
	Reason string
}

func (e *MalformedFingerprintError) Error() string {
	msg := "malformed fingerprint"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Source != "" {
		msg += fmt.Sprintf(": source %s", e.Source)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %s", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
