// internal/dex/raydium/errors.go
package raydium

import "errors"

var (
	// ErrUnknownProgram is returned when a transaction carries no
	// instruction for the configured AMM program. Callers skip the
	// transaction; this is not a failure.
	ErrUnknownProgram = errors.New("no instruction for AMM program")

	// ErrMalformedInstruction marks an initialize2 instruction whose
	// payload or account list is too short for the expected layout.
	ErrMalformedInstruction = errors.New("malformed initialize2 instruction")

	// ErrAccountTooSmall marks a market account shorter than the 341
	// bytes needed for the side-account slices.
	ErrAccountTooSmall = errors.New("market account too small")

	// ErrAccountDecode marks a pool account that does not match the
	// liquidity state v4 layout.
	ErrAccountDecode = errors.New("pool account layout mismatch")

	// ErrIncompleteRecord marks a candidate missing a required identity
	// field. The candidate is discarded; scanning continues.
	ErrIncompleteRecord = errors.New("incomplete pool record")

	// ErrSwapFailed marks a swap that failed during construction,
	// signing, sending or confirmation. Fatal to the sniper instance.
	ErrSwapFailed = errors.New("swap failed")
)
