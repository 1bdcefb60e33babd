package service

import "fmt"

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
)

// Error is a business-rule failure. Anything else returned by a service is
// an infrastructure error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Code so a sentinel matches every error built from it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

var (
	ErrValidation                 = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "invalid input"}
	ErrSoldOut                    = &Error{Kind: KindConflict, Code: "SOLD_OUT", Message: "Someone grabbed the last box"}
	ErrDuplicateActiveReservation = &Error{Kind: KindConflict, Code: "DUPLICATE_ACTIVE_RESERVATION", Message: "You already have a box reserved from this drop"}
	ErrNotActive                  = &Error{Kind: KindConflict, Code: "NOT_ACTIVE", Message: "Reservation is no longer active"}
	ErrNotFound                   = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}
)

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: what + " not found"}
}
