// Package clid implements a prefixed ulid ID type. Identifiers of synthesized network entities are
// derived from the entity's identifying fields so that repeated synthesis yields the same ids.
package clid

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	// Separator for string encoding, reads well in CloudFormation outputs and logs.
	Separator = "-"
	// must be this length, to prevent abuse through large strings and to make the size predictable.
	PrefixSize = 4
	// ZeroPrefix is shown when a zero value is encoded, for recognizing that case easily.
	ZeroPrefix = "zzzz"
)

// ID implements a prefixed ULID identifier.
type ID struct {
	p string
	d ulid.ULID
}

// Derive returns the identifier for the given key parts. The same prefix and parts always produce
// the same identifier, different parts produce a different one.
func Derive(prefix string, parts ...string) ID {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))

	// the first 48 bits of the digest make up the ulid timestamp, the rest is used as entropy
	ms := binary.BigEndian.Uint64(append([]byte{0, 0}, sum[:6]...))

	id, err := NewFromParts(prefix, ms, bytes.NewReader(sum[6:]))
	if err != nil {
		panic("clid: " + err.Error())
	}

	return id
}

// NewFromParts creates an id from its parts.
func NewFromParts(prefix string, ms uint64, entr io.Reader) (id ID, err error) {
	if len(prefix) != PrefixSize {
		panic(fmt.Sprintf("clid: prefix size must be: %d", PrefixSize))
	}

	id.p = prefix

	id.d, err = ulid.New(ms, entr)
	if err != nil {
		return id, fmt.Errorf("unable to unit ulid: %w", err)
	}

	return id, nil
}

// Prefix returns the prefix of the identifier.
func (id ID) Prefix() string { return id.p }

// IsZero returns whether the id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// String implements the fmt.Stringer interface.
func (id ID) String() string {
	if id.p == "" {
		return strings.Join([]string{ZeroPrefix, id.d.String()}, Separator)
	}

	return strings.Join([]string{id.p, id.d.String()}, Separator)
}

// Compare returns an integer comparing two ids by their string encoding.
func (id ID) Compare(other ID) int {
	return strings.Compare(id.String(), other.String())
}

// ParseError describes a failure to parse an ID.
type ParseError struct {
	v string
	m string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("clid: failed to parse %q: %s", e.v, e.m)
}

// Parse an id from its string encoding.
func Parse(s string) (id ID, err error) {
	prefix, after, found := strings.Cut(s, Separator)
	if !found {
		return id, ParseError{v: s, m: "missing separator '" + Separator + "'"}
	}

	if len(prefix) != PrefixSize {
		return id, ParseError{v: s, m: fmt.Sprintf("prefix must be %d characters", PrefixSize)}
	}

	if prefix != ZeroPrefix {
		id.p = prefix
	}

	id.d, err = ulid.ParseStrict(after)
	if err != nil {
		return ID{}, fmt.Errorf("clid: %w", err)
	}

	return id, nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (id *ID) UnmarshalText(data []byte) (err error) {
	*id, err = Parse(string(data))

	return err
}
