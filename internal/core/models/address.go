package models

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

const AddressSize = 32

// Address identifies a storage account or a signer.
type Address [AddressSize]byte

// DeriveAddress hashes a seed path into an address. Each seed is length
// prefixed so ("ab", "c") and ("a", "bc") never collide.
func DeriveAddress(seeds ...[]byte) Address {
	h := blake3.New(AddressSize, nil)
	var prefix [4]byte
	for _, seed := range seeds {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(seed)))
		_, _ = h.Write(prefix[:])
		_, _ = h.Write(seed)
	}
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// U64Seed encodes v the way numeric seeds are fed to DeriveAddress.
func U64Seed(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != AddressSize {
		return a, fmt.Errorf("parse address: want %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
