package common

import (
	"github.com/pkg/errors"
)

// Assert panics with an error wrapping ErrContractViolation when cond is false.
// It is reserved for caller bugs; recoverable conditions are returned as errors.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.Wrapf(ErrContractViolation, format, args...))
	}
}
