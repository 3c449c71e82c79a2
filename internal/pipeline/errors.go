package pipeline

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/spend"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

var (
	// ErrPrecondition marks a run aborted before any extraction.
	ErrPrecondition = eris.New("pipeline: precondition failed")
	// ErrNothingToDo marks a successful run that had no new rows to write.
	ErrNothingToDo = eris.New("pipeline: nothing to do")
)

// PartialError marks a run that finished but skipped some work: failed
// fetch units or an aborted reporting stage.
type PartialError struct {
	Err error
}

func (e *PartialError) Error() string {
	return e.Err.Error()
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Partial wraps err as a PartialError.
func Partial(err error) error {
	if err == nil {
		return nil
	}
	return &PartialError{Err: err}
}

// IsPrecondition reports whether err is a missing input or an
// unresolvable extraction window.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, dataset.ErrMissing) ||
		errors.Is(err, dataset.ErrNoWindow)
}

// IsAuth reports whether err is a rejected credential.
func IsAuth(err error) bool {
	var ae *meta.AuthError
	return errors.As(err, &ae)
}

// IsPartial reports whether the run completed with warnings.
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// IsNothingToDo reports whether the run had nothing to write.
func IsNothingToDo(err error) bool {
	return errors.Is(err, ErrNothingToDo) || errors.Is(err, spend.ErrNoRows)
}
