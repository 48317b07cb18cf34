package publisher

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
)

// RandomSource picks the partition when no partition key is given.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// globalRandom uses the goroutine-safe top-level math/rand/v2 functions
type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

// Partitioner selects stream partitions from partition keys
type Partitioner struct {
	random RandomSource

	mu     sync.RWMutex
	hashes map[string]int32
}

// NewPartitioner creates a partitioner. A nil source uses math/rand/v2.
func NewPartitioner(random RandomSource) *Partitioner {
	if random == nil {
		random = globalRandom{}
	}
	return &Partitioner{
		random: random,
		hashes: make(map[string]int32),
	}
}

// SelectPartition returns the partition for partitionKey among nbPartitions.
// An empty key selects a random partition.
func (p *Partitioner) SelectPartition(nbPartitions int, partitionKey string) (int, error) {
	switch {
	case nbPartitions <= 0:
		return 0, fmt.Errorf("%w: stream has %d partitions", ErrInvalidConfiguration, nbPartitions)
	case nbPartitions == 1:
		return 0, nil
	case partitionKey != "":
		h := int64(p.hash(partitionKey))
		if h < 0 {
			h = -h
		}
		return int(h % int64(nbPartitions)), nil
	default:
		return p.random.IntN(nbPartitions), nil
	}
}

// hash returns the cached partition hash of key
func (p *Partitioner) hash(key string) int32 {
	p.mu.RLock()
	h, ok := p.hashes[key]
	p.mu.RUnlock()
	if ok {
		return h
	}

	h = crypto.PartitionHash(key)

	p.mu.Lock()
	p.hashes[key] = h
	p.mu.Unlock()
	return h
}

// CachedKeys returns how many partition keys have a memoized hash
func (p *Partitioner) CachedKeys() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hashes)
}
