package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu      sync.Mutex
	lastMs      uint64
	lastEntropy [10]byte
)

// NewULID returns a 26-character Crockford base32 ULID: 48 bits of milliseconds then
// 80 bits of entropy. Within one millisecond the entropy is incremented, so IDs from
// this process sort in creation order.
func NewULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ms := uint64(time.Now().UnixMilli())
	if ms <= lastMs {
		ms = lastMs
		incrementEntropy(&lastEntropy)
	} else {
		lastMs = ms
		rand.Read(lastEntropy[:])
	}

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ms<<16)
	copy(b[6:], lastEntropy[:])
	return encodeULID(b)
}

func incrementEntropy(e *[10]byte) {
	for i := len(e) - 1; i >= 0; i-- {
		e[i]++
		if e[i] != 0 {
			return
		}
	}
}

// encodeULID writes the 128-bit value five bits at a time from the low end.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
