package params

import "errors"

var (
	// ErrInvalidSelector is returned for argument selectors outside [0,255]
	// or in the reserved range without a defined meaning.
	ErrInvalidSelector = errors.New("invalid argument selector")

	// ErrInvalidOperator is returned when encoding with an operator that is
	// not one of the ACL operator tags.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrIndexOutOfRange is returned when a jump target does not fit 32 bits.
	ErrIndexOutOfRange = errors.New("jump index out of range")

	// ErrUnknownOperator is returned when a decoded word carries an operator
	// byte with no matching tag.
	ErrUnknownOperator = errors.New("unknown operator")
)
