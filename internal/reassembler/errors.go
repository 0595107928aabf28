package reassembler

import (
	"errors"

	"ddos-reassembler/internal/fingerprint"
)

var (
	// ErrMissingData is returned when a run is started without any fingerprints.
	ErrMissingData = fingerprint.ErrMissingData

	// ErrNoTargetFound means no self-observation cleared the detection threshold.
	ErrNoTargetFound = errors.New("no target found with the desired detection threshold")

	// ErrPrecededState is returned when enrichment or persistence is requested before
	// the reassembly finished.
	ErrPrecededState = errors.New("reassemble must be called first")

	// ErrInvalidTransition is returned for operations the current state does not allow,
	// such as reassembling twice.
	ErrInvalidTransition = errors.New("invalid state transition")

	ErrInvalidDropFraction = errors.New("drop fraction must be within [0, 1]")
)
