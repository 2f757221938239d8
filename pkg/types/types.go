package types

import (
	"fmt"
	"math/big"
	"regexp"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
)

// PriceScaleDecimals is the number of decimal places prices carry on-chain.
// A stored price is round(price * 10^8) as a big integer.
const PriceScaleDecimals = 8

var priceScaleFactor = math.LegacyNewDec(100_000_000)

// canonicalSymbolRE matches the canonical trading-pair form, e.g. BTCUSDT.
var canonicalSymbolRE = regexp.MustCompile(`^[A-Z0-9]{3,10}$`)

// IsCanonicalSymbol reports whether s is a valid canonical symbol.
func IsCanonicalSymbol(s string) bool {
	return canonicalSymbolRE.MatchString(s)
}

// PriceObservation is a single observed value from one data source.
type PriceObservation struct {
	Symbol    string
	Source    string
	Price     math.LegacyDec
	Timestamp time.Time
	Volume    math.LegacyDec
	Metadata  map[string]string
}

// Validate validates the observation invariants.
func (o PriceObservation) Validate() error {
	if !IsCanonicalSymbol(o.Symbol) {
		return fmt.Errorf("symbol %q is not canonical", o.Symbol)
	}
	if o.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if o.Price.IsNil() || !o.Price.IsPositive() {
		return fmt.Errorf("price must be positive: %s", o.Price)
	}
	return nil
}

// AggregatedPrice is the reconciled value for one symbol at one tick.
type AggregatedPrice struct {
	Symbol             string
	Price              math.LegacyDec
	Timestamp          time.Time
	SourceObservations []PriceObservation
	StandardDeviation  math.LegacyDec
	Confidence         int
}

// Validate validates the aggregated price invariants.
func (a AggregatedPrice) Validate() error {
	if !IsCanonicalSymbol(a.Symbol) {
		return fmt.Errorf("symbol %q is not canonical", a.Symbol)
	}
	if a.Price.IsNil() || !a.Price.IsPositive() {
		return fmt.Errorf("price must be positive: %s", a.Price)
	}
	if a.Confidence < 0 || a.Confidence > 100 {
		return fmt.Errorf("confidence out of range: %d", a.Confidence)
	}
	return nil
}

// ScaledPrice returns round(price * 10^8) as a big integer, the on-chain
// representation of the price.
func (a AggregatedPrice) ScaledPrice() *big.Int {
	return ScalePrice(a.Price)
}

// ScalePrice converts a decimal price to its on-chain fixed-point form.
func ScalePrice(price math.LegacyDec) *big.Int {
	return price.Mul(priceScaleFactor).RoundInt().BigInt()
}

// PriceBatch is the unit of submission. Sub-batches split from one logical
// batch share BatchID and CreatedAt.
type PriceBatch struct {
	BatchID   uuid.UUID
	CreatedAt time.Time
	Prices    []AggregatedPrice
}

// Validate checks the distinct-symbol invariant.
func (b PriceBatch) Validate() error {
	seen := make(map[string]struct{}, len(b.Prices))
	for _, p := range b.Prices {
		if _, dup := seen[p.Symbol]; dup {
			return fmt.Errorf("duplicate symbol in batch: %s", p.Symbol)
		}
		seen[p.Symbol] = struct{}{}
	}
	return nil
}

// BatchStatus is the submission state machine.
type BatchStatus string

const (
	StatusPending    BatchStatus = "Pending"
	StatusProcessing BatchStatus = "Processing"
	StatusSent       BatchStatus = "Sent"
	StatusConfirmed  BatchStatus = "Confirmed"
	StatusFailed     BatchStatus = "Failed"
	StatusRejected   BatchStatus = "Rejected"
	StatusUnknown    BatchStatus = "Unknown"
)

// statusSeverity orders statuses from best to worst outcome so that the
// status of a logical batch reflects the worst sub-batch.
var statusSeverity = map[BatchStatus]int{
	StatusConfirmed:  0,
	StatusSent:       1,
	StatusProcessing: 2,
	StatusPending:    3,
	StatusUnknown:    4,
	StatusRejected:   5,
	StatusFailed:     6,
}

// WorseOf returns the worse of two statuses.
func WorseOf(a, b BatchStatus) BatchStatus {
	if statusSeverity[b] > statusSeverity[a] {
		return b
	}
	return a
}

// BatchStatusInfo is the observable outcome record for one batch.
type BatchStatusInfo struct {
	BatchID         uuid.UUID
	Status          BatchStatus
	TransactionHash string
	Timestamp       time.Time
	ErrorMessage    string
	ProcessedCount  int
	TotalCount      int
	BlockNumber     int64
	FeeCost         math.LegacyDec
}

// AttestationType distinguishes what an attestation record witnesses.
type AttestationType string

const (
	AttestationTypeAccount   AttestationType = "Account"
	AttestationTypePriceFeed AttestationType = "PriceFeed"
)

// PriceSummary is the per-price digest carried by an attestation record.
type PriceSummary struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	Confidence int    `json:"confidence"`
}

// AttestationRecord is the durable evidence of a submitted batch.
type AttestationRecord struct {
	AttestationType AttestationType `json:"attestationType"`
	RunID           string          `json:"runId,omitempty"`
	RunNumber       string          `json:"runNumber,omitempty"`
	RepoOwner       string          `json:"repoOwner,omitempty"`
	RepoName        string          `json:"repoName,omitempty"`
	Workflow        string          `json:"workflow,omitempty"`
	BatchID         string          `json:"batchId"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	PriceCount      int             `json:"priceCount"`
	PriceSummaries  []PriceSummary  `json:"priceSummaries,omitempty"`
	Signature       string          `json:"signature,omitempty"`
}
