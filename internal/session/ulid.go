package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Dependency-free ULID generator for page session IDs: 26 Crockford Base32
// characters over 48 bits of millisecond timestamp plus 80 bits of
// randomness, with a sequence counter to stay unique within one millisecond.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	idMu    sync.Mutex
	lastMS  uint64
	lastSeq uint16
)

// NewID returns a fresh session identifier.
func NewID() string {
	idMu.Lock()
	ms := uint64(time.Now().UnixMilli())
	if ms == lastMS {
		lastSeq++
	} else {
		lastMS = ms
		lastSeq = 0
	}
	seq := lastSeq
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeBase32(b)
}

// encodeBase32 encodes 128 bits as 26 Crockford characters, reading the
// buffer as a big-endian bit stream (the first character carries 3 bits).
func encodeBase32(b [16]byte) string {
	out := make([]byte, 26)
	bits := 128 - 26*5 + 5 // 3 bits in the first output character
	acc := uint32(0)
	have := 0
	in := 0
	for i := range out {
		want := 5
		if i == 0 {
			want = bits
		}
		for have < want {
			acc = acc<<8 | uint32(b[in])
			in++
			have += 8
		}
		out[i] = crockford[(acc>>(uint(have-want)))&(1<<uint(want)-1)]
		have -= want
	}
	return string(out)
}
