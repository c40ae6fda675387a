package checker

import "fmt"

// CheckerError reports that the checker could not be run or that its
// output could not be understood.
type CheckerError struct {
	Command string
	Output  string
	Err     error
}

func (e *CheckerError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("checker: %v", e.Err)
	}
	return fmt.Sprintf("checker %s: %v", e.Command, e.Err)
}

func (e *CheckerError) Unwrap() error {
	return e.Err
}
