// file: pkg/crypto/address.go
package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// AddressLength is the size of an on-chain account address in bytes.
const AddressLength = 32

// Domain separator appended when deriving object addresses.
const objectAddressScheme = 0xFE

// PrimarySubaccountSeed is the seed of the subaccount every wallet trades from by default.
const PrimarySubaccountSeed = "decibel_dex_primary"

var ErrInvalidAddress = errors.New("invalid address")

// Address is a 32-byte account or object address.
type Address [AddressLength]byte

// ParseAddress accepts "0x"-prefixed or bare hex. Short forms such as "0x1"
// are left-padded with zeros.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if h == "" {
		return a, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if len(h) > 2*AddressLength {
		return a, fmt.Errorf("%w: %q longer than %d bytes", ErrInvalidAddress, s, AddressLength)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	raw, err := hexutil.Decode("0x" + h)
	if err != nil {
		return a, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	copy(a[:], common.LeftPadBytes(raw, AddressLength))
	return a, nil
}

// MustParseAddress is ParseAddress for compile-time constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the full 64-character lower-case form with 0x prefix.
func (a Address) Hex() string { return hexutil.Encode(a[:]) }

func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CreateObjectAddress derives the address of an object created by creator
// with the given seed: SHA3-256(creator || seed || 0xFE).
func CreateObjectAddress(creator Address, seed []byte) Address {
	h := sha3.New256()
	h.Write(creator[:])
	h.Write(seed)
	h.Write([]byte{objectAddressScheme})
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// PrimarySubaccountAddress returns the deterministic primary subaccount of owner.
func PrimarySubaccountAddress(owner Address) Address {
	return CreateObjectAddress(owner, []byte(PrimarySubaccountSeed))
}
