// Package attestation records signed evidence of every submitted batch. The
// feed's correctness never depends on attestation durability: callers treat
// write failures as warnings.
package attestation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/paw-chain/oracle-feeder/pkg/keys"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// Store persists attestation records.
type Store interface {
	// Write persists one record keyed by batch id.
	Write(ctx context.Context, record types.AttestationRecord) error
	// Get returns the records for one batch id, newest first.
	Get(ctx context.Context, batchID string) ([]types.AttestationRecord, error)
	// CleanupOldAttestations removes records older than the given number of
	// days and returns how many were removed.
	CleanupOldAttestations(ctx context.Context, days int) (int, error)
	// Close releases the underlying storage.
	Close() error
}

// DefaultRetentionDays is the default pruning window.
const DefaultRetentionDays = 7

// Attester builds and signs records with the attester key.
type Attester struct {
	key   *keys.Account
	store Store
}

// NewAttester creates an Attester writing to the store.
func NewAttester(key *keys.Account, store Store) *Attester {
	return &Attester{key: key, store: store}
}

// CIMetadata reads the CI coordinates from the environment. Absent variables
// leave the fields empty and are elided from the serialised record.
func CIMetadata() (runID, runNumber, repoOwner, repoName, workflow string) {
	runID = os.Getenv("GITHUB_RUN_ID")
	runNumber = os.Getenv("GITHUB_RUN_NUMBER")
	workflow = os.Getenv("GITHUB_WORKFLOW")
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		for i := range repo {
			if repo[i] == '/' {
				repoOwner, repoName = repo[:i], repo[i+1:]
				break
			}
		}
	}
	return
}

// AttestBatch writes one signed PriceFeed record for a submitted sub-batch.
func (a *Attester) AttestBatch(ctx context.Context, batch types.PriceBatch, txHash string) error {
	runID, runNumber, repoOwner, repoName, workflow := CIMetadata()

	record := types.AttestationRecord{
		AttestationType: types.AttestationTypePriceFeed,
		RunID:           runID,
		RunNumber:       runNumber,
		RepoOwner:       repoOwner,
		RepoName:        repoName,
		Workflow:        workflow,
		BatchID:         batch.BatchID.String(),
		TransactionHash: txHash,
		CreatedAt:       time.Now().UTC(),
		PriceCount:      len(batch.Prices),
		PriceSummaries:  summarize(batch.Prices),
	}

	signed, err := a.Sign(record)
	if err != nil {
		return err
	}
	return a.store.Write(ctx, signed)
}

// Sign signs the canonical JSON form of the record, excluding the signature
// field itself, and returns the record with the signature set.
func (a *Attester) Sign(record types.AttestationRecord) (types.AttestationRecord, error) {
	record.Signature = ""
	message, err := json.Marshal(record)
	if err != nil {
		return record, fmt.Errorf("encode attestation: %w", err)
	}

	sig, err := a.key.Sign(message)
	if err != nil {
		return record, fmt.Errorf("sign attestation: %w", err)
	}
	record.Signature = base64.StdEncoding.EncodeToString(sig)
	return record, nil
}

// Verify checks a record signature against the attester key.
func (a *Attester) Verify(record types.AttestationRecord) bool {
	sig, err := base64.StdEncoding.DecodeString(record.Signature)
	if err != nil {
		return false
	}
	record.Signature = ""
	message, err := json.Marshal(record)
	if err != nil {
		return false
	}
	return a.key.Verify(message, sig)
}

func summarize(prices []types.AggregatedPrice) []types.PriceSummary {
	out := make([]types.PriceSummary, 0, len(prices))
	for _, p := range prices {
		out = append(out, types.PriceSummary{
			Symbol:     p.Symbol,
			Price:      p.Price.String(),
			Confidence: p.Confidence,
		})
	}
	return out
}
