package contract

// Event names emitted by the contract.
const (
	EventInitialized             = "Initialized"
	EventPriceUpdated            = "PriceUpdated"
	EventOracleAdded             = "OracleAdded"
	EventOracleRemoved           = "OracleRemoved"
	EventTeeAccountAdded         = "TeeAccountAdded"
	EventTeeAccountRemoved       = "TeeAccountRemoved"
	EventOwnerChanged            = "OwnerChanged"
	EventContractPaused          = "ContractPaused"
	EventCircuitBreakerTriggered = "CircuitBreakerTriggered"
	EventMinOraclesUpdated       = "MinOraclesUpdated"
	EventContractUpgraded        = "ContractUpgraded"
)

// Event is one notification emitted during a call.
type Event struct {
	Name string
	Args []any
}

// EventCollector accumulates the events of a contract's lifetime. Failed
// calls emit nothing: events are appended only after their state change.
type EventCollector struct {
	events []Event
}

// Emit appends one event.
func (c *EventCollector) Emit(name string, args ...any) {
	c.events = append(c.events, Event{Name: name, Args: args})
}

// Events returns the emitted events in order.
func (c *EventCollector) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset drops the accumulated events.
func (c *EventCollector) Reset() {
	c.events = nil
}
