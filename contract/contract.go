// Package contract models the on-chain price oracle: storage layout, update
// preconditions, dual-witness access control and the event surface. The
// authoritative deployment runs on the chain VM; this model backs the feeder
// tests and local runs against the same semantics.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"time"
)

const (
	// MinConfidence is the lowest confidence accepted by an update.
	MinConfidence = 50
	// OverrideConfidence lets an update exceed the deviation cap.
	OverrideConfidence = 100
	// MaxPriceAgeSeconds is the freshness window for update timestamps.
	MaxPriceAgeSeconds = 3600
	// MaxDeviationPercent caps the price change of one update.
	MaxDeviationPercent = 10
)

// Witness is one transaction signer as seen by the contract.
type Witness struct {
	Account       string
	CalledByEntry bool
}

// TxContext carries the ambient transaction data of one call.
type TxContext struct {
	Witnesses []Witness
	Now       time.Time
}

// CheckWitness reports whether the transaction carries a called-by-entry
// witness for the address.
func (tx TxContext) CheckWitness(address string) bool {
	for _, w := range tx.Witnesses {
		if w.CalledByEntry && w.Account == address {
			return true
		}
	}
	return false
}

// OracleContract is the storage-backed contract state machine. Admin
// operations require the owner witness; updates require the dual oracle and
// TEE witness. All mutating operations report success as a bool and never
// panic.
type OracleContract struct {
	store  Store
	events EventCollector
}

// New creates a contract over the store.
func New(store Store) *OracleContract {
	return &OracleContract{store: store}
}

// Events returns the events emitted so far, in order.
func (c *OracleContract) Events() []Event { return c.events.Events() }

// ResetEvents drops the accumulated events. Test helper.
func (c *OracleContract) ResetEvents() { c.events.Reset() }

// Initialize sets the owner and defaults. It succeeds exactly once; any
// later call returns false without mutating state.
func (c *OracleContract) Initialize(tx TxContext, owner, initialTeeAccount string) bool {
	if c.getBool(InitializedKey) {
		return false
	}
	if owner == "" {
		return false
	}

	c.store.Set(InitializedKey, trueByte)
	c.store.Set(OwnerKey, []byte(owner))
	c.setInt(MinOraclesKey, 1)
	c.setInt(OracleCountKey, 0)
	c.setBool(CircuitBreakerKey, false)
	c.setBool(PausedKey, false)
	c.events.Emit(EventInitialized, owner)

	if initialTeeAccount != "" {
		c.store.Set(GetTeeAccountKey(initialTeeAccount), trueByte)
		c.events.Emit(EventTeeAccountAdded, initialTeeAccount)
	}
	return true
}

// ChangeOwner transfers ownership. Owner witness required.
func (c *OracleContract) ChangeOwner(tx TxContext, newOwner string) bool {
	if !c.ownerWitness(tx) || newOwner == "" {
		return false
	}
	old := c.GetOwner()
	c.store.Set(OwnerKey, []byte(newOwner))
	c.events.Emit(EventOwnerChanged, old, newOwner)
	return true
}

// SetPaused toggles the paused flag. Owner witness required.
func (c *OracleContract) SetPaused(tx TxContext, paused bool) bool {
	if !c.ownerWitness(tx) {
		return false
	}
	c.setBool(PausedKey, paused)
	c.events.Emit(EventContractPaused, paused)
	return true
}

// SetCircuitBreaker toggles the emergency stop. Owner witness required.
func (c *OracleContract) SetCircuitBreaker(tx TxContext, triggered bool) bool {
	if !c.ownerWitness(tx) {
		return false
	}
	c.setBool(CircuitBreakerKey, triggered)
	c.events.Emit(EventCircuitBreakerTriggered, triggered)
	return true
}

// SetMinOracles updates the oracle quorum, which must stay at least 1.
func (c *OracleContract) SetMinOracles(tx TxContext, n int64) bool {
	if !c.ownerWitness(tx) || n < 1 {
		return false
	}
	c.setInt(MinOraclesKey, n)
	c.events.Emit(EventMinOraclesUpdated, n)
	return true
}

// Update records a contract upgrade. Owner witness required.
func (c *OracleContract) Update(tx TxContext, nef, manifest []byte, data any) bool {
	if !c.ownerWitness(tx) || len(nef) == 0 || len(manifest) == 0 {
		return false
	}
	digest := sha256.Sum256(nef)
	c.events.Emit(EventContractUpgraded, "0x"+hex.EncodeToString(digest[:]))
	return true
}

// AddOracle authorises an oracle address. Owner witness required.
func (c *OracleContract) AddOracle(tx TxContext, address string) bool {
	if !c.ownerWitness(tx) || address == "" {
		return false
	}
	key := GetOracleKey(address)
	if c.store.Has(key) {
		return false
	}
	c.store.Set(key, trueByte)
	c.setInt(OracleCountKey, c.GetOracleCount()+1)
	c.events.Emit(EventOracleAdded, address)
	return true
}

// RemoveOracle revokes an oracle address. Owner witness required; removing
// an unknown address returns false.
func (c *OracleContract) RemoveOracle(tx TxContext, address string) bool {
	if !c.ownerWitness(tx) {
		return false
	}
	key := GetOracleKey(address)
	if !c.store.Has(key) {
		return false
	}
	c.store.Delete(key)
	c.setInt(OracleCountKey, c.GetOracleCount()-1)
	c.events.Emit(EventOracleRemoved, address)
	return true
}

// AddTeeAccount authorises a TEE address. Owner witness required.
func (c *OracleContract) AddTeeAccount(tx TxContext, address string) bool {
	if !c.ownerWitness(tx) || address == "" {
		return false
	}
	key := GetTeeAccountKey(address)
	if c.store.Has(key) {
		return false
	}
	c.store.Set(key, trueByte)
	c.events.Emit(EventTeeAccountAdded, address)
	return true
}

// RemoveTeeAccount revokes a TEE address. Owner witness required.
func (c *OracleContract) RemoveTeeAccount(tx TxContext, address string) bool {
	if !c.ownerWitness(tx) {
		return false
	}
	key := GetTeeAccountKey(address)
	if !c.store.Has(key) {
		return false
	}
	c.store.Delete(key)
	c.events.Emit(EventTeeAccountRemoved, address)
	return true
}

// UpdatePrice stores one price. Every precondition must hold; any miss
// returns false with no state change and no event.
func (c *OracleContract) UpdatePrice(tx TxContext, symbol string, price *big.Int, timestamp, confidence int64) bool {
	if c.getBool(ReentrancyGuardKey) {
		return false
	}
	c.setBool(ReentrancyGuardKey, true)
	defer c.setBool(ReentrancyGuardKey, false)

	if !c.updateAllowed(tx) {
		return false
	}
	return c.applyEntry(tx, symbol, price, timestamp, confidence)
}

// UpdatePriceBatch stores many prices in array order. Entries failing a
// precondition are skipped; the call returns true when at least one entry
// was stored.
func (c *OracleContract) UpdatePriceBatch(tx TxContext, symbols []string, prices []*big.Int, timestamps, confidences []int64) bool {
	if c.getBool(ReentrancyGuardKey) {
		return false
	}
	c.setBool(ReentrancyGuardKey, true)
	defer c.setBool(ReentrancyGuardKey, false)

	if len(symbols) == 0 ||
		len(prices) != len(symbols) ||
		len(timestamps) != len(symbols) ||
		len(confidences) != len(symbols) {
		return false
	}
	if !c.updateAllowed(tx) {
		return false
	}

	applied := false
	for i := range symbols {
		if c.applyEntry(tx, symbols[i], prices[i], timestamps[i], confidences[i]) {
			applied = true
		}
	}
	return applied
}

// updateAllowed evaluates the call-level preconditions: dual witness, not
// paused, breaker clear, quorum met.
func (c *OracleContract) updateAllowed(tx TxContext) bool {
	if !c.dualWitness(tx) {
		return false
	}
	if c.IsPaused() {
		return false
	}
	if c.IsCircuitBreakerTriggered() {
		return false
	}
	if c.GetOracleCount() < c.GetMinOracles() {
		return false
	}
	return true
}

// dualWitness requires two distinct called-by-entry signers, one authorised
// as oracle and one as TEE account. A single signer in both sets counts once.
func (c *OracleContract) dualWitness(tx TxContext) bool {
	for _, oracleWitness := range tx.Witnesses {
		if !oracleWitness.CalledByEntry || !c.IsOracle(oracleWitness.Account) {
			continue
		}
		for _, teeWitness := range tx.Witnesses {
			if !teeWitness.CalledByEntry || teeWitness.Account == oracleWitness.Account {
				continue
			}
			if c.IsTeeAccount(teeWitness.Account) {
				return true
			}
		}
	}
	return false
}

// applyEntry evaluates the per-entry preconditions and stores the price.
func (c *OracleContract) applyEntry(tx TxContext, symbol string, price *big.Int, timestamp, confidence int64) bool {
	if symbol == "" || price == nil || price.Sign() <= 0 || timestamp <= 0 ||
		confidence < 0 || confidence > 100 {
		return false
	}
	if confidence < MinConfidence {
		return false
	}

	now := tx.Now
	if now.IsZero() {
		now = time.Now()
	}
	if now.Unix()-timestamp > MaxPriceAgeSeconds {
		return false
	}

	if timestamp <= c.GetTimestamp(symbol) {
		return false
	}

	if old := c.GetPrice(symbol); old.Sign() > 0 {
		// |new - old| * 100 > old * MaxDeviationPercent means the change
		// exceeds the cap; only full confidence may override.
		diff := new(big.Int).Sub(price, old)
		diff.Abs(diff).Mul(diff, big.NewInt(100))
		limit := new(big.Int).Mul(old, big.NewInt(MaxDeviationPercent))
		if diff.Cmp(limit) > 0 && confidence < OverrideConfidence {
			return false
		}
	}

	c.store.Set(GetPriceKey(symbol), price.Bytes())
	c.setInt(GetTimestampKey(symbol), timestamp)
	c.setInt(GetConfidenceKey(symbol), confidence)
	c.events.Emit(EventPriceUpdated, symbol, new(big.Int).Set(price), timestamp, confidence)
	return true
}

// GetPrice returns the stored scaled price, zero when missing.
func (c *OracleContract) GetPrice(symbol string) *big.Int {
	value := c.store.Get(GetPriceKey(symbol))
	if value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(value)
}

// GetTimestamp returns the stored update timestamp, zero when missing.
func (c *OracleContract) GetTimestamp(symbol string) int64 {
	return c.getInt(GetTimestampKey(symbol))
}

// GetConfidenceScore returns the stored confidence, zero when missing.
func (c *OracleContract) GetConfidenceScore(symbol string) int64 {
	return c.getInt(GetConfidenceKey(symbol))
}

// GetPriceData returns [price, timestamp, confidence] for a symbol.
func (c *OracleContract) GetPriceData(symbol string) [3]*big.Int {
	return [3]*big.Int{
		c.GetPrice(symbol),
		big.NewInt(c.GetTimestamp(symbol)),
		big.NewInt(c.GetConfidenceScore(symbol)),
	}
}

// IsOracle reports whether the address is an authorised oracle.
func (c *OracleContract) IsOracle(address string) bool {
	return c.store.Has(GetOracleKey(address))
}

// IsTeeAccount reports whether the address is an authorised TEE account.
func (c *OracleContract) IsTeeAccount(address string) bool {
	return c.store.Has(GetTeeAccountKey(address))
}

// IsPaused reports the paused flag.
func (c *OracleContract) IsPaused() bool { return c.getBool(PausedKey) }

// IsCircuitBreakerTriggered reports the emergency stop flag.
func (c *OracleContract) IsCircuitBreakerTriggered() bool { return c.getBool(CircuitBreakerKey) }

// GetOracleCount returns the number of authorised oracles.
func (c *OracleContract) GetOracleCount() int64 { return c.getInt(OracleCountKey) }

// GetMinOracles returns the oracle quorum.
func (c *OracleContract) GetMinOracles() int64 { return c.getInt(MinOraclesKey) }

// GetOwner returns the owner address, empty before initialization.
func (c *OracleContract) GetOwner() string {
	return string(c.store.Get(OwnerKey))
}

func (c *OracleContract) ownerWitness(tx TxContext) bool {
	owner := c.GetOwner()
	return owner != "" && tx.CheckWitness(owner)
}

var trueByte = []byte{0x01}

func (c *OracleContract) getBool(key []byte) bool {
	value := c.store.Get(key)
	return len(value) == 1 && value[0] == 0x01
}

func (c *OracleContract) setBool(key []byte, v bool) {
	if v {
		c.store.Set(key, trueByte)
		return
	}
	c.store.Set(key, []byte{0x00})
}

func (c *OracleContract) setInt(key []byte, v int64) {
	c.store.Set(key, big.NewInt(v).Bytes())
}

func (c *OracleContract) getInt(key []byte) int64 {
	value := c.store.Get(key)
	if value == nil {
		return 0
	}
	return new(big.Int).SetBytes(value).Int64()
}
