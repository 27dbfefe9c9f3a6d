package workflow

import (
	"errors"
	"fmt"

	"github.com/ankittk/taskzone/pkg/models"
)

// Kind classifies an engine failure. Callers map kinds to responses; only
// KindStoreFailure is worth retrying.
type Kind string

const (
	KindNotFound            Kind = models.ErrorKindNotFound
	KindValidation          Kind = models.ErrorKindValidation
	KindConstraintViolation Kind = models.ErrorKindConstraintViolation
	KindStoreFailure        Kind = models.ErrorKindStoreFailure
)

// Reasons. Match with errors.Is.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeRequired   = errors.New("a task can only enter ACTIVE when assigned")
	ErrInvalidZone        = errors.New("invalid zone")
	ErrInvalidDepartment  = errors.New("invalid department")
	ErrDepartmentMismatch = errors.New("the employee must belong to the same department as the task")
	ErrExclusivity        = errors.New("an employee may hold only one ACTIVE task")
	ErrStore              = errors.New("store failure")
)

var reasonKinds = map[error]Kind{
	ErrTaskNotFound:       KindNotFound,
	ErrEmployeeNotFound:   KindNotFound,
	ErrEmployeeRequired:   KindValidation,
	ErrInvalidZone:        KindValidation,
	ErrInvalidDepartment:  KindValidation,
	ErrDepartmentMismatch: KindConstraintViolation,
	ErrExclusivity:        KindConstraintViolation,
	ErrStore:              KindStoreFailure,
}

// Error is returned by every Engine operation.
type Error struct {
	Kind   Kind
	Op     string
	Reason error // one of the Err* values above
	Msg    string
	Err    error // underlying cause, set for store failures
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := e.Op + ": " + e.Reason.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func fail(op string, reason error, format string, args ...any) *Error {
	return &Error{Kind: reasonKinds[reason], Op: op, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// storeFailure wraps err unless it is already an *Error.
func storeFailure(op string, err error) error {
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return &Error{Kind: KindStoreFailure, Op: op, Reason: ErrStore, Err: err}
}

// KindOf returns the kind of err, or KindStoreFailure for errors not produced by the engine.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindStoreFailure
}
