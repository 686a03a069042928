// Package handid generates sortable hand identifiers: a UUIDv7 rendered as
// 26 characters of Crockford base32.
package handid

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded identifier.
const Length = 26

// Generator produces identifiers from an optional entropy source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading randomness from r. A nil reader
// uses crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New returns an identifier using crypto/rand.
func New() string {
	return NewGenerator(nil).New()
}

// New returns a fresh identifier.
func (g *Generator) New() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.rand != nil {
		id, err = uuid.NewV7FromReader(g.rand)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("handid: generating uuid: " + err.Error())
	}
	return Encode(id)
}

// Encode renders a UUID as base32, most significant bits first. The 128 bits
// are left-padded to 130 so the first character is at most '7'.
func Encode(id uuid.UUID) string {
	hi := binary.BigEndian.Uint64(id[:8])
	lo := binary.BigEndian.Uint64(id[8:])

	var out [Length]byte
	for i := Length - 1; i >= 0; i-- {
		out[i] = alphabet[lo&0x1f]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// Decode parses an encoded identifier back into a UUID.
func Decode(s string) (uuid.UUID, error) {
	if err := Validate(s); err != nil {
		return uuid.Nil, err
	}
	var hi, lo uint64
	for i := 0; i < Length; i++ {
		v := uint64(strings.IndexByte(alphabet, s[i]))
		hi = hi<<5 | lo>>59
		lo = lo<<5 | v
	}
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[:8], hi)
	binary.BigEndian.PutUint64(id[8:], lo)
	return id, nil
}

// Validate checks length and alphabet.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("hand id must be %d characters, got %d", Length, len(s))
	}
	if s[0] > '7' {
		return fmt.Errorf("hand id %q overflows 128 bits", s)
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("invalid character %q in hand id", s[i])
		}
	}
	return nil
}
