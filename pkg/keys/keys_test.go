package keys_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/keys"
)

// Test vectors: compressed WIFs for two fixed P-256 scalars.
const (
	attesterWIF = "KwbKDn9tfRYp9sFbNc4k7jKpMvJZ3JcdSHASRKcbxeZVEz7npiFb"
	feePayerWIF = "KxGKdFYCseGL17S8EgXtaswJZGgYkR9K4URJq18rkkhFVoSPu7Dw"
)

func TestFromWIF(t *testing.T) {
	account, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(account.Address(), "N"), "address %s", account.Address())
	require.Len(t, account.PublicKey(), 33)

	hash := account.ScriptHash()
	require.True(t, strings.HasPrefix(hash, "0x"))
	require.Len(t, hash, 42)
}

func TestFromWIFDeterministic(t *testing.T) {
	a, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)
	b, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)

	require.Equal(t, a.Address(), b.Address())
	require.Equal(t, a.PublicKey(), b.PublicKey())
}

func TestFromWIFDistinctKeys(t *testing.T) {
	a, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)
	b, err := keys.FromWIF(feePayerWIF)
	require.NoError(t, err)
	require.NotEqual(t, a.Address(), b.Address())
}

func TestFromWIFRejectsMalformed(t *testing.T) {
	_, err := keys.FromWIF("tooShort")
	require.Error(t, err)

	// Valid length, corrupted checksum.
	corrupted := attesterWIF[:len(attesterWIF)-1] + "1"
	_, err = keys.FromWIF(corrupted)
	require.Error(t, err)

	// Not base58.
	_, err = keys.FromWIF(strings.Repeat("0", 52))
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	account, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)

	message := []byte("batch payload")
	sig, err := account.Sign(message)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	require.True(t, account.Verify(message, sig))
	require.False(t, account.Verify([]byte("tampered"), sig))
	require.False(t, account.Verify(message, sig[:32]))

	other, err := keys.FromWIF(feePayerWIF)
	require.NoError(t, err)
	require.False(t, other.Verify(message, sig))
}

func TestAddressFromScriptHash(t *testing.T) {
	addr, err := keys.AddressFromScriptHash(make([]byte, 20))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "N"))

	_, err = keys.AddressFromScriptHash(make([]byte, 19))
	require.Error(t, err)
}
