package contract

var (
	// PriceKeyPrefix is the prefix for per-symbol scaled prices
	PriceKeyPrefix = []byte{0x01, 0x01}

	// TimestampKeyPrefix is the prefix for per-symbol update timestamps
	TimestampKeyPrefix = []byte{0x01, 0x02}

	// ConfidenceKeyPrefix is the prefix for per-symbol confidence scores
	ConfidenceKeyPrefix = []byte{0x01, 0x03}

	// OracleKeyPrefix is the prefix for authorised oracle addresses
	OracleKeyPrefix = []byte{0x01, 0x04}

	// TeeAccountKeyPrefix is the prefix for authorised TEE addresses
	TeeAccountKeyPrefix = []byte{0x01, 0x05}

	// OwnerKey is the key for the contract owner address
	OwnerKey = []byte{0x01, 0x10}

	// PausedKey is the key for the paused flag
	PausedKey = []byte{0x01, 0x11}

	// InitializedKey is the key for the initialization flag
	InitializedKey = []byte{0x01, 0x12}

	// ReentrancyGuardKey is the key for the reentrancy guard flag
	ReentrancyGuardKey = []byte{0x01, 0x13}

	// CircuitBreakerKey is the key for the circuit breaker flag
	CircuitBreakerKey = []byte{0x01, 0x14}

	// MinOraclesKey is the key for the minimum oracle count
	MinOraclesKey = []byte{0x01, 0x15}

	// OracleCountKey is the key for the current oracle count
	OracleCountKey = []byte{0x01, 0x16}
)

// GetPriceKey returns the store key for a symbol's scaled price
func GetPriceKey(symbol string) []byte {
	return append(PriceKeyPrefix, []byte(symbol)...)
}

// GetTimestampKey returns the store key for a symbol's update timestamp
func GetTimestampKey(symbol string) []byte {
	return append(TimestampKeyPrefix, []byte(symbol)...)
}

// GetConfidenceKey returns the store key for a symbol's confidence score
func GetConfidenceKey(symbol string) []byte {
	return append(ConfidenceKeyPrefix, []byte(symbol)...)
}

// GetOracleKey returns the store key for an oracle address
func GetOracleKey(address string) []byte {
	return append(OracleKeyPrefix, []byte(address)...)
}

// GetTeeAccountKey returns the store key for a TEE address
func GetTeeAccountKey(address string) []byte {
	return append(TeeAccountKeyPrefix, []byte(address)...)
}
