package flow

import "errors"

// Validation errors are recovered locally: the conversation stays in its
// current phase and the reply carries a re-prompt. ErrUnexpectedInput asks
// the user to restart. Storage failures come back as orders.ErrUnavailable
// wrapped by Confirm and leave the conversation in the confirmation phase.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnexpectedInput = errors.New("unexpected input")
)
