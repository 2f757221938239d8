package types

import (
	sdkerrors "cosmossdk.io/errors"
)

// ModuleName is the error codespace for the feeder.
const ModuleName = "oraclefeeder"

// Feeder sentinel errors
var (
	// Configuration errors (fatal at startup)
	ErrConfig      = sdkerrors.Register(ModuleName, 2, "invalid configuration")
	ErrCredentials = sdkerrors.Register(ModuleName, 3, "signer key missing or malformed")

	// Collection and aggregation errors
	ErrNoData            = sdkerrors.Register(ModuleName, 4, "no price data collected")
	ErrMixedSymbols      = sdkerrors.Register(ModuleName, 5, "aggregation input contains mixed symbols")
	ErrUnsupportedSymbol = sdkerrors.Register(ModuleName, 6, "symbol not supported by source")

	// Transport errors
	ErrHTTPTransient    = sdkerrors.Register(ModuleName, 10, "transient HTTP failure")
	ErrHTTPPermanent    = sdkerrors.Register(ModuleName, 11, "permanent HTTP failure")
	ErrCircuitOpen      = sdkerrors.Register(ModuleName, 12, "circuit breaker open")
	ErrBulkheadRejected = sdkerrors.Register(ModuleName, 13, "per-source concurrency saturated")
	ErrCancelled        = sdkerrors.Register(ModuleName, 14, "operation cancelled")

	// Submission errors
	ErrEmptyBatch = sdkerrors.Register(ModuleName, 20, "batch contains no prices")
	ErrRPC        = sdkerrors.Register(ModuleName, 21, "rpc node returned an error")
	ErrTxFault    = sdkerrors.Register(ModuleName, 22, "transaction execution faulted")
)
