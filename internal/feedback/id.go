package feedback

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackFragmentLen is the length of the random part of a fallback id.
const fallbackFragmentLen = 8

// IDGenerator produces opaque record identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs and falls back to
// FallbackID when the random source cannot be read.
type UUIDGenerator struct{}

// NewID returns a fresh identifier.
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return FallbackID(time.Now())
	}
	return id.String()
}

// FallbackID builds an id from the base-36 timestamp followed by a random
// base-36 fragment. It is unique enough for a single collection and is not a
// security token.
func FallbackID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + randomFragment()
}

func randomFragment() string {
	var buf [8]byte
	var n uint64
	if _, err := rand.Read(buf[:]); err == nil {
		n = binary.LittleEndian.Uint64(buf[:])
	} else {
		n = mathrand.Uint64()
	}
	s := strconv.FormatUint(n, 36)
	if len(s) < fallbackFragmentLen {
		s = strings.Repeat("0", fallbackFragmentLen-len(s)) + s
	}
	return s[:fallbackFragmentLen]
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

// NewID calls f.
func (f IDFunc) NewID() string { return f() }
