//go:build !z3

package symbolic

import (
	"errors"
	"time"
)

// ErrZ3Unavailable is returned when the binary was built without Z3.
var ErrZ3Unavailable = errors.New("z3 backend not available: rebuild with -tags z3")

func NewZ3Solver(time.Duration) (Solver, error) {
	return nil, ErrZ3Unavailable
}
