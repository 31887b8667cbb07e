package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// Single-key ed25519 authentication scheme byte.
const ed25519Scheme = 0x00

// AIP-80 prefix some wallets export private keys with.
const ed25519KeyPrefix = "ed25519-priv-"

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Account holds an ed25519 key pair and the address it authenticates.
type Account struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    Address
}

// GenerateAccount creates a new random account.
func GenerateAccount() (*Account, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newAccount(priv, pub), nil
}

// AccountFromPrivateKeyHex loads an account from a hex private key.
// Format: "0x1234...", "1234..." or "ed25519-priv-0x1234...", holding either
// the 32-byte seed or the 64-byte expanded key.
func AccountFromPrivateKeyHex(hexKey string) (*Account, error) {
	h := strings.TrimSpace(hexKey)
	h = strings.TrimPrefix(h, ed25519KeyPrefix)
	if !strings.HasPrefix(h, "0x") && !strings.HasPrefix(h, "0X") {
		h = "0x" + h
	}
	raw, err := hexutil.Decode(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !priv.Equal(ed25519.PrivateKey(raw)) {
			return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidPrivateKey)
		}
	default:
		return nil, fmt.Errorf("%w: %d bytes, want %d or %d",
			ErrInvalidPrivateKey, len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
	return newAccount(priv, priv.Public().(ed25519.PublicKey)), nil
}

func newAccount(priv ed25519.PrivateKey, pub ed25519.PublicKey) *Account {
	return &Account{
		privateKey: priv,
		publicKey:  pub,
		address:    AuthenticationKey(pub),
	}
}

// AuthenticationKey is SHA3-256(pubkey || 0x00). It is the address of an
// account whose key was never rotated.
func AuthenticationKey(pub ed25519.PublicKey) Address {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{ed25519Scheme})
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// Address returns the address derived from the public key.
func (a *Account) Address() Address {
	return a.address
}

// Matches reports whether addr is the address this key authenticates.
// A rotated account keeps its original address, so a mismatch is not
// necessarily an error.
func (a *Account) Matches(addr Address) bool {
	return a.address == addr
}

// PublicKeyHex returns the 32-byte public key with 0x prefix.
func (a *Account) PublicKeyHex() string {
	return hexutil.Encode(a.publicKey)
}

// PrivateKeyHex returns the 32-byte seed with 0x prefix.
// WARNING: Keep this secret! Never expose to users or logs
func (a *Account) PrivateKeyHex() string {
	return hexutil.Encode(a.privateKey.Seed())
}

// Sign returns the 64-byte ed25519 signature of message.
func (a *Account) Sign(message []byte) []byte {
	return ed25519.Sign(a.privateKey, message)
}

// Verify checks an ed25519 signature against a public key.
func Verify(pub ed25519.PublicKey, message, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}

// PublicKey returns a copy of the public key.
func (a *Account) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), a.publicKey...)
}
