package zkvm

import "errors"

var (
	// ErrProgramNotRegistered is returned by the executor when no guest is
	// registered under the requested image id.
	ErrProgramNotRegistered = errors.New("zkvm: program not registered")
	// ErrExecutionFailed is returned when a guest aborts, panics, or exits
	// without committing a journal. No receipt is produced.
	ErrExecutionFailed = errors.New("zkvm: guest execution failed")
	// ErrBadImageID is returned for image id strings that are not 32 bytes
	// of hex.
	ErrBadImageID = errors.New("zkvm: bad image id")
	// ErrMalformedReceipt is returned when receipt bytes cannot be decoded.
	ErrMalformedReceipt = errors.New("zkvm: malformed receipt")
	// ErrImageIDMismatch is returned when a receipt claims a different
	// program than the verifier expects. This check runs before anything
	// else in Verify and is never downgraded.
	ErrImageIDMismatch = errors.New("zkvm: receipt image id mismatch")
	// ErrUnsealedReceipt is returned when verification is asked of an
	// execution-only receipt.
	ErrUnsealedReceipt = errors.New("zkvm: receipt carries no seal")
	// ErrSealInvalid is returned when the receipt seal does not match the
	// claimed image id and journal.
	ErrSealInvalid = errors.New("zkvm: receipt seal invalid")
)
