package attestation_test

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/attestation"
	"github.com/paw-chain/oracle-feeder/pkg/keys"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const attesterWIF = "KwbKDn9tfRYp9sFbNc4k7jKpMvJZ3JcdSHASRKcbxeZVEz7npiFb"

func newAttester(t *testing.T, store attestation.Store) *attestation.Attester {
	t.Helper()
	key, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)
	return attestation.NewAttester(key, store)
}

func TestAttestBatchWritesSignedRecord(t *testing.T) {
	store := attestation.NewMemoryStore()
	attester := newAttester(t, store)

	batch := types.PriceBatch{
		BatchID:   uuid.New(),
		CreatedAt: time.Now().UTC(),
		Prices: []types.AggregatedPrice{
			{Symbol: "BTCUSDT", Price: math.LegacyMustNewDecFromStr("50050"), Confidence: 80},
		},
	}

	require.NoError(t, attester.AttestBatch(context.Background(), batch, "0xfeed"))

	records, err := store.Get(context.Background(), batch.BatchID.String())
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, types.AttestationTypePriceFeed, record.AttestationType)
	require.Equal(t, "0xfeed", record.TransactionHash)
	require.Equal(t, 1, record.PriceCount)
	require.Equal(t, "BTCUSDT", record.PriceSummaries[0].Symbol)
	require.NotEmpty(t, record.Signature)
	require.True(t, attester.Verify(record))
}

func TestVerifyRejectsTampering(t *testing.T) {
	attester := newAttester(t, attestation.NewMemoryStore())

	record, err := attester.Sign(types.AttestationRecord{
		AttestationType: types.AttestationTypePriceFeed,
		BatchID:         uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		PriceCount:      2,
	})
	require.NoError(t, err)
	require.True(t, attester.Verify(record))

	tampered := record
	tampered.PriceCount = 3
	require.False(t, attester.Verify(tampered))

	tampered = record
	tampered.Signature = "bm90IGEgc2lnbmF0dXJl"
	require.False(t, attester.Verify(tampered))
}

func TestMemoryStoreNewestFirst(t *testing.T) {
	store := attestation.NewMemoryStore()
	batchID := uuid.NewString()

	for _, tx := range []string{"0x01", "0x02", "0x03"} {
		require.NoError(t, store.Write(context.Background(), types.AttestationRecord{
			BatchID:         batchID,
			TransactionHash: tx,
			CreatedAt:       time.Now().UTC(),
		}))
	}

	records, err := store.Get(context.Background(), batchID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "0x03", records[0].TransactionHash)
	require.Equal(t, "0x01", records[2].TransactionHash)
}

func TestCleanupOldAttestations(t *testing.T) {
	store := attestation.NewMemoryStore()
	now := time.Now().UTC()

	stale := uuid.NewString()
	fresh := uuid.NewString()
	require.NoError(t, store.Write(context.Background(), types.AttestationRecord{
		BatchID: stale, CreatedAt: now.AddDate(0, 0, -10),
	}))
	require.NoError(t, store.Write(context.Background(), types.AttestationRecord{
		BatchID: fresh, CreatedAt: now,
	}))

	removed, err := store.CleanupOldAttestations(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	records, err := store.Get(context.Background(), stale)
	require.NoError(t, err)
	require.Empty(t, records)

	records, err = store.Get(context.Background(), fresh)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
