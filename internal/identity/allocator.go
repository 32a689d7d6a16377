package identity

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"time"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// maxAttempts bounds the collision retry loop. Exceeding it fails the
// allocation with CodeExhausted and no state mutated.
const maxAttempts = 10

// Entropy supplies raw material for candidate derivation. The default source
// is attacker-observable (approximate clock), so the allocator guarantees
// uniqueness, never unpredictability. Tests inject fixed sources to force
// collisions deterministically.
type Entropy interface {
	Draw() uint64
}

// ClockEntropy derives entropy from the wall clock and an internal sequence.
type ClockEntropy struct {
	mu  sync.Mutex
	seq uint64
}

func (e *ClockEntropy) Draw() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	return uint64(time.Now().UnixNano()) ^ e.seq
}

// Allocator issues numeric identifiers inside a caller-supplied range,
// retrying on collisions against a caller-supplied used-set probe.
type Allocator struct {
	mu      sync.Mutex
	entropy Entropy
	counter uint64
}

// NewAllocator builds an Allocator. A nil entropy source falls back to the
// clock-based default.
func NewAllocator(entropy Entropy) *Allocator {
	if entropy == nil {
		entropy = &ClockEntropy{}
	}
	return &Allocator{entropy: entropy}
}

// Allocate derives a candidate ID in [lo, hi] from the caller address, the
// internal monotonic counter, an entropy draw, and the attempt number. It
// retries with mutated inputs while `used` reports a collision, up to
// maxAttempts. The counter advances only on success.
func (a *Allocator) Allocate(caller domain.AccountID, used func(uint64) bool, lo, hi uint64) (uint64, error) {
	if hi < lo {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid allocation range [%d, %d]", lo, hi)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	span := hi - lo + 1
	for attempt := uint64(0); attempt < maxAttempts; attempt++ {
		candidate := lo + derive(caller, a.counter, a.entropy.Draw(), attempt)%span
		if used(candidate) {
			continue
		}
		a.counter++
		return candidate, nil
	}
	return 0, dErrors.Newf(dErrors.CodeExhausted, "no free identifier after %d attempts", maxAttempts)
}

func derive(caller domain.AccountID, counter, entropy, attempt uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(caller))

	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], counter)
	binary.BigEndian.PutUint64(buf[8:16], entropy)
	binary.BigEndian.PutUint64(buf[16:24], attempt)
	h.Write(buf[:])

	return h.Sum64()
}
