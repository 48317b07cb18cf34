package publisher

import (
	"sync"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// chainKey identifies one message chain of this publisher
type chainKey struct {
	streamID  string
	partition int
}

// chainEntry holds the last ref issued on a chain
type chainEntry struct {
	mu   sync.Mutex
	last *protocol.MessageRef
}

// ChainSequencer issues MessageIDs and back-pointers per (stream, partition).
// The table lock only guards entry creation; issuance on a chain is
// serialized by the entry's own mutex so independent chains never contend.
type ChainSequencer struct {
	publisherID protocol.Address
	msgChainID  string

	mu     sync.RWMutex
	chains map[chainKey]*chainEntry
}

// NewChainSequencer creates a sequencer for one publishing session
func NewChainSequencer(publisherID protocol.Address, msgChainID string) *ChainSequencer {
	return &ChainSequencer{
		publisherID: publisherID,
		msgChainID:  msgChainID,
		chains:      make(map[chainKey]*chainEntry),
	}
}

// MsgChainID returns the chain id shared by every message of this session
func (s *ChainSequencer) MsgChainID() string {
	return s.msgChainID
}

// NextID returns the id for a message at timestamp and the ref of the
// previous message on the same chain (nil for the first one).
// The sequence number restarts at 0 whenever the timestamp changes.
func (s *ChainSequencer) NextID(streamID string, partition int, timestamp int64) (protocol.MessageID, *protocol.MessageRef) {
	entry := s.entry(chainKey{streamID: streamID, partition: partition})

	entry.mu.Lock()
	defer entry.mu.Unlock()

	prev := entry.last
	seq := 0
	if prev != nil && prev.Timestamp == timestamp {
		seq = prev.SequenceNumber + 1
	}

	entry.last = &protocol.MessageRef{Timestamp: timestamp, SequenceNumber: seq}

	id := protocol.MessageID{
		StreamID:        streamID,
		StreamPartition: partition,
		Timestamp:       timestamp,
		SequenceNumber:  seq,
		PublisherID:     s.publisherID,
		MsgChainID:      s.msgChainID,
	}
	return id, prev
}

// Last returns the last ref issued on a chain
func (s *ChainSequencer) Last(streamID string, partition int) (protocol.MessageRef, bool) {
	s.mu.RLock()
	entry, ok := s.chains[chainKey{streamID: streamID, partition: partition}]
	s.mu.RUnlock()
	if !ok {
		return protocol.MessageRef{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.last == nil {
		return protocol.MessageRef{}, false
	}
	return *entry.last, true
}

// entry returns the chain entry for key, creating it on first use
func (s *ChainSequencer) entry(key chainKey) *chainEntry {
	s.mu.RLock()
	entry, ok := s.chains[key]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.chains[key]; ok {
		return entry
	}
	entry = &chainEntry{}
	s.chains[key] = entry
	return entry
}
