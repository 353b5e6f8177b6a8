package ledger

import (
	pkgerrors "github.com/HydrikMasqued/quartermaster/pkg/errors"
)

// Validation failures callers are expected to branch on.
var (
	// ErrInvalidQuantity rejects non-positive contribution quantities and
	// negative override totals.
	ErrInvalidQuantity = pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity")

	// ErrMissingReason rejects overrides and redistributions without a reason.
	ErrMissingReason = pkgerrors.New(pkgerrors.CodeValidation, "reason is required")

	// ErrUnknownEventKind rejects removal requests for kinds outside the two
	// ledger tables.
	ErrUnknownEventKind = pkgerrors.New(pkgerrors.CodeValidation, "unknown event kind")
)
