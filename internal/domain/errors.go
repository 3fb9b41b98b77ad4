package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a request-level failure. Every error returned by the service
// layer either carries a Kind or is treated as KindInternal.
type Kind string

const (
	KindNotFound                  Kind = "NOT_FOUND"
	KindInvalidQuantity           Kind = "INVALID_QUANTITY"
	KindInsufficientStock         Kind = "INSUFFICIENT_STOCK"
	KindCriticalInsufficientStock Kind = "CRITICAL_INSUFFICIENT_STOCK"
	KindInvalidTransition         Kind = "INVALID_TRANSITION"
	KindAlreadyExists             Kind = "ALREADY_EXISTS"
	KindEmptyCart                 Kind = "EMPTY_CART"
	KindInvalidArgument           Kind = "INVALID_ARGUMENT"
	KindInternal                  Kind = "INTERNAL"
)

// Error is a classified domain failure. Two errors match under errors.Is when
// their kinds are equal and the target either has no message or the same one,
// so ErrInsufficientStock matches every insufficient-stock error while
// ErrProductNotFound only matches missing products.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// WithDetails returns a copy of e carrying the given details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return &clone
}

// Wrap returns a copy of e with err as its cause.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *Error) withMessage(msg string) *Error {
	clone := *e
	clone.Message = msg
	return &clone
}

var (
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrInsufficientStock         = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrCriticalInsufficientStock = &Error{Kind: KindCriticalInsufficientStock, Message: "insufficient stock during order confirmation"}
	ErrInvalidQuantity           = &Error{Kind: KindInvalidQuantity, Message: "quantity must be positive"}
	ErrInvalidTransition         = &Error{Kind: KindInvalidTransition, Message: "invalid order status transition"}
	ErrAlreadyExists             = &Error{Kind: KindAlreadyExists}
	ErrInvalidArgument           = &Error{Kind: KindInvalidArgument}

	ErrUserNotFound     = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrProductNotFound  = &Error{Kind: KindNotFound, Message: "product not found"}
	ErrCategoryNotFound = &Error{Kind: KindNotFound, Message: "category not found"}
	ErrCartNotFound     = &Error{Kind: KindNotFound, Message: "cart not found"}
	ErrItemNotInCart    = &Error{Kind: KindNotFound, Message: "product not in cart"}
	ErrAddressNotFound  = &Error{Kind: KindNotFound, Message: "shipping address not found or does not belong to user"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrEmptyCart        = &Error{Kind: KindEmptyCart, Message: "cannot create payment intent for an empty cart"}

	ErrUserAlreadyExists     = &Error{Kind: KindAlreadyExists, Message: "user with this username or email already exists"}
	ErrCategoryAlreadyExists = &Error{Kind: KindAlreadyExists, Message: "category with this name already exists"}
	ErrPaymentIntentConflict = &Error{Kind: KindAlreadyExists, Message: "payment intent already linked to an order"}
)

// KindOf reports the kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
