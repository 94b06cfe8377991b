package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrorClass says whether a failed statement is worth running again.
type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

var pqErrorClasses = map[pq.ErrorCode]ErrorClass{
	"40001": ErrorClassSerialization,
	"40P01": ErrorClassDeadlock,
	"55P03": ErrorClassTransient, // lock_not_available
}

// ClassifyError maps a postgres error anywhere in err's chain to its class.
// Everything it does not recognise, nil included, is permanent.
func ClassifyError(err error) ErrorClass {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ErrorClassPermanent
	}
	return pqErrorClasses[pqErr.Code]
}

func IsRetryable(err error) bool {
	return ClassifyError(err) != ErrorClassPermanent
}

// IsUniqueViolation reports whether err is a unique constraint violation. An
// empty constraint matches any unique index.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsForeignKeyViolation reports whether err is a restricted delete or a
// dangling reference.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// Kind groups domain errors by how callers are expected to react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindUnauthorized
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

var (
	ErrUserNotFound     = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrCategoryNotFound = &Error{Kind: KindNotFound, Message: "category not found"}
	ErrProductNotFound  = &Error{Kind: KindNotFound, Message: "product not found"}
	ErrCartNotFound     = &Error{Kind: KindNotFound, Message: "cart not found"}
	ErrCartItemNotFound = &Error{Kind: KindNotFound, Message: "cart item not found"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Message: "order not found"}

	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "an identified user is required"}

	ErrCartCheckedOut = &Error{Kind: KindConflict, Message: "cart already checked out"}
	ErrEmptyCart      = &Error{Kind: KindConflict, Message: "cart is empty"}
	ErrAlreadyExists  = &Error{Kind: KindConflict, Message: "already exists"}
	ErrInUse          = &Error{Kind: KindConflict, Message: "still referenced"}

	ErrOptimisticLockFailed = &Error{Kind: KindConflict, Message: "optimistic lock failed"}
)
