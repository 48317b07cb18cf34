package publisher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

func TestChainSequencerNextID(t *testing.T) {
	publisher := testAddress(0x01)
	seq := NewChainSequencer(publisher, "chain")

	id, prev := seq.NextID("s1", 0, 1000)
	assert.Nil(t, prev)
	assert.Equal(t, 0, id.SequenceNumber)
	assert.Equal(t, int64(1000), id.Timestamp)
	assert.Equal(t, publisher, id.PublisherID)
	assert.Equal(t, "chain", id.MsgChainID)

	id, prev = seq.NextID("s1", 0, 1000)
	require.NotNil(t, prev)
	assert.Equal(t, 1, id.SequenceNumber)
	assert.Equal(t, protocol.MessageRef{Timestamp: 1000, SequenceNumber: 0}, *prev)

	id, prev = seq.NextID("s1", 0, 1001)
	require.NotNil(t, prev)
	assert.Equal(t, 0, id.SequenceNumber)
	assert.Equal(t, protocol.MessageRef{Timestamp: 1000, SequenceNumber: 1}, *prev)
}

func TestChainSequencerIndependentChains(t *testing.T) {
	seq := NewChainSequencer(testAddress(0x01), "chain")

	seq.NextID("s1", 0, 1000)
	seq.NextID("s1", 0, 1000)

	tests := []struct {
		name      string
		streamID  string
		partition int
	}{
		{"other partition", "s1", 1},
		{"other stream", "s2", 0},
		// "s1"+"10" and "s11"+"0" must not collide
		{"concatenation lookalike", "s11", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, prev := seq.NextID(tt.streamID, tt.partition, 1000)
			if prev != nil {
				t.Errorf("Expected first message of chain to have no prev ref, got %+v", prev)
			}
			if id.SequenceNumber != 0 {
				t.Errorf("Expected sequence number 0, got %d", id.SequenceNumber)
			}
		})
	}

	last, ok := seq.Last("s1", 0)
	require.True(t, ok)
	assert.Equal(t, protocol.MessageRef{Timestamp: 1000, SequenceNumber: 1}, last)
}

func TestChainSequencerLastUnknownChain(t *testing.T) {
	seq := NewChainSequencer(testAddress(0x01), "chain")

	_, ok := seq.Last("missing", 0)
	assert.False(t, ok)
}

func TestChainSequencerConcurrent(t *testing.T) {
	seq := NewChainSequencer(testAddress(0x01), "chain")

	const workers = 16
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[int]bool)
	prevs := make(map[int]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, prev := seq.NextID("s1", 0, 5000)

				mu.Lock()
				seen[id.SequenceNumber] = true
				if prev != nil {
					prevs[prev.SequenceNumber] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := workers * perWorker
	assert.Len(t, seen, total, "every sequence number must be issued exactly once")
	for i := 0; i < total; i++ {
		assert.True(t, seen[i], "sequence number %d missing", i)
	}
	// Every issued number but the last is somebody's prev ref
	assert.Len(t, prevs, total-1)
	assert.False(t, prevs[total-1])
}
