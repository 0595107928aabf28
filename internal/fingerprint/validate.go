package fingerprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTTL is the largest value an IPv4 TTL field can carry.
const MaxTTL = 255

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the structural constraints of a decoded document.
func Validate(fp *Fingerprint) error {
	if fp == nil {
		return errors.New("fingerprint cannot be nil")
	}
	if err := validate.Struct(fp); err != nil {
		return &MalformedFingerprintError{Key: fp.Key, Reason: formatValidationError(err)}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "min", "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Namespace(), tagWord(fe.Tag()), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func tagWord(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}
