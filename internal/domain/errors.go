package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap these with fmt.Errorf("%w: ...") and the API layer
// maps them to status codes with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrForbidden           = errors.New("forbidden")
	ErrOutOfStock          = errors.New("out of stock")
	ErrValidation          = errors.New("validation failed")
	ErrGatewayVerification = errors.New("gateway verification failed")
	ErrConflict            = errors.New("conflict")
)

var (
	// ErrNoUnitsProvisioned means the product has no unit rows at all; an operator must provision them.
	ErrNoUnitsProvisioned = fmt.Errorf("%w: product has no units provisioned", ErrOutOfStock)
	// ErrAllUnitsRented is an ordinary stock-out.
	ErrAllUnitsRented = fmt.Errorf("%w: all units are currently rented", ErrOutOfStock)
)
