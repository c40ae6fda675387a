package matcher

import "fmt"

// InputError reports a trace that cannot be used: it fails to parse or
// resolve, or it does not contain exactly one implementation.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid trace %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// UnsupportedScaleError aborts a run whose sections would need more proof
// obligations than the configured ceiling.
type UnsupportedScaleError struct {
	Limit   int
	Reached int
}

func (e *UnsupportedScaleError) Error() string {
	return fmt.Sprintf("can't handle very long programs (max %d assertions allowed, %d reached)", e.Limit, e.Reached)
}

// EmissionRoundTripError reports that the emitted combined program could
// not be read back.
type EmissionRoundTripError struct {
	Path string
	Err  error
}

func (e *EmissionRoundTripError) Error() string {
	return fmt.Sprintf("emitted program %s does not re-parse: %v", e.Path, e.Err)
}

func (e *EmissionRoundTripError) Unwrap() error {
	return e.Err
}

// InconsistentHypothesisWarning flags a section whose final `assert false`
// was not refuted: its assumptions contradict each other and every
// obligation in it holds vacuously.
type InconsistentHypothesisWarning struct {
	Seq   int
	Label string
}

func (w InconsistentHypothesisWarning) String() string {
	return fmt.Sprintf("section %s: assumptions are inconsistent, `assert false` was not refuted", w.Label)
}
