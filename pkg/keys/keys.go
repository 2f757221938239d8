// Package keys implements NEP-2 style account handling for the feeder: WIF
// decoding, script-hash and address derivation, and transaction signing.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	sdkerrors "cosmossdk.io/errors"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const (
	wifPrefix         = 0x80
	wifCompressedFlag = 0x01
	addressVersion    = 0x35 // yields the N address prefix
	// MinWIFLength is the shortest well-formed compressed WIF.
	MinWIFLength = 52
)

// Account is a signing identity derived from a WIF private key.
type Account struct {
	priv       *ecdsa.PrivateKey
	publicKey  []byte // compressed, 33 bytes
	scriptHash []byte // 20 bytes, little-endian
	address    string
}

// FromWIF decodes a compressed WIF string into an Account.
func FromWIF(wif string) (*Account, error) {
	if len(wif) < MinWIFLength {
		return nil, sdkerrors.Wrapf(types.ErrCredentials, "wif too short: %d chars", len(wif))
	}

	decoded, err := base58.Decode(wif)
	if err != nil {
		return nil, sdkerrors.Wrapf(types.ErrCredentials, "wif base58: %v", err)
	}
	// prefix + 32-byte key + compressed flag + 4-byte checksum
	if len(decoded) != 38 {
		return nil, sdkerrors.Wrapf(types.ErrCredentials, "wif payload length %d", len(decoded))
	}

	payload, checksum := decoded[:34], decoded[34:]
	expected := doubleSHA256(payload)[:4]
	for i := range checksum {
		if checksum[i] != expected[i] {
			return nil, sdkerrors.Wrap(types.ErrCredentials, "wif checksum mismatch")
		}
	}
	if payload[0] != wifPrefix {
		return nil, sdkerrors.Wrapf(types.ErrCredentials, "wif prefix 0x%02x", payload[0])
	}
	if payload[33] != wifCompressedFlag {
		return nil, sdkerrors.Wrap(types.ErrCredentials, "wif missing compressed flag")
	}

	return fromPrivateBytes(payload[1:33])
}

func fromPrivateBytes(d []byte) (*Account, error) {
	curve := elliptic.P256()
	k := new(big.Int).SetBytes(d)
	if k.Sign() == 0 || k.Cmp(curve.Params().N) >= 0 {
		return nil, sdkerrors.Wrap(types.ErrCredentials, "private key out of range")
	}

	priv := &ecdsa.PrivateKey{D: k}
	priv.Curve = curve
	priv.X, priv.Y = curve.ScalarBaseMult(d)

	pub := elliptic.MarshalCompressed(curve, priv.X, priv.Y)
	script := verificationScript(pub)
	scriptHash := hash160(script)

	return &Account{
		priv:       priv,
		publicKey:  pub,
		scriptHash: scriptHash,
		address:    encodeAddress(scriptHash),
	}, nil
}

// PublicKey returns the compressed public key.
func (a *Account) PublicKey() []byte {
	out := make([]byte, len(a.publicKey))
	copy(out, a.publicKey)
	return out
}

// ScriptHash returns the account script hash in 0x-prefixed big-endian form.
func (a *Account) ScriptHash() string {
	reversed := make([]byte, len(a.scriptHash))
	for i, b := range a.scriptHash {
		reversed[len(a.scriptHash)-1-i] = b
	}
	return "0x" + hex.EncodeToString(reversed)
}

// Address returns the base58check address, which starts with N.
func (a *Account) Address() string { return a.address }

// Sign signs the message with SHA-256 and P-256 ECDSA, returning the 64-byte
// r || s form used in transaction witnesses.
func (a *Account) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, a.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// Verify checks a 64-byte signature against the account public key.
func (a *Account) Verify(message, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	digest := sha256.Sum256(message)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(&a.priv.PublicKey, digest[:], r, s)
}

// verificationScript builds the single-signature verification script:
// PUSHDATA1 33 <pubkey> SYSCALL System.Crypto.CheckSig.
func verificationScript(pub []byte) []byte {
	script := make([]byte, 0, 40)
	script = append(script, 0x0c, 0x21)
	script = append(script, pub...)
	script = append(script, 0x41, 0x56, 0xe7, 0xb3, 0x27)
	return script
}

func hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

func encodeAddress(scriptHash []byte) string {
	payload := make([]byte, 0, 25)
	payload = append(payload, addressVersion)
	payload = append(payload, scriptHash...)
	payload = append(payload, doubleSHA256(payload)[:4]...)
	return base58.Encode(payload)
}

// AddressFromScriptHash converts a 20-byte script hash to its address form.
func AddressFromScriptHash(scriptHash []byte) (string, error) {
	if len(scriptHash) != 20 {
		return "", fmt.Errorf("script hash must be 20 bytes, got %d", len(scriptHash))
	}
	return encodeAddress(scriptHash), nil
}
