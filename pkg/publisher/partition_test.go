package publisher

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPartitionByKey(t *testing.T) {
	p := NewPartitioner(fixedRandom(0))

	tests := []struct {
		key        string
		partitions int
		want       int
	}{
		{"deviceA", 3, 0},
		{"abc", 3, 2},
		{"abc", 5, 4},
		{"abc", 10, 4},
		{"user-42", 5, 2},
		{"user-42", 10, 2},
	}

	for _, tt := range tests {
		got, err := p.SelectPartition(tt.partitions, tt.key)
		if err != nil {
			t.Fatalf("SelectPartition(%d, %q) failed: %v", tt.partitions, tt.key, err)
		}
		if got != tt.want {
			t.Errorf("SelectPartition(%d, %q) = %d, want %d", tt.partitions, tt.key, got, tt.want)
		}
	}
}

func TestSelectPartitionStable(t *testing.T) {
	p := NewPartitioner(nil)

	first, err := p.SelectPartition(3, "deviceA")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := p.SelectPartition(3, "deviceA")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, 1, p.CachedKeys())

	// A fresh partitioner agrees
	other, err := NewPartitioner(nil).SelectPartition(3, "deviceA")
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestSelectPartitionSinglePartition(t *testing.T) {
	p := NewPartitioner(fixedRandom(7))

	for _, key := range []string{"", "deviceA", "abc"} {
		got, err := p.SelectPartition(1, key)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	}
	assert.Equal(t, 0, p.CachedKeys(), "single partition streams never hash")
}

func TestSelectPartitionInvalidCount(t *testing.T) {
	p := NewPartitioner(nil)

	for _, n := range []int{0, -1, math.MinInt32} {
		_, err := p.SelectPartition(n, "deviceA")
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("SelectPartition(%d) error = %v, want ErrInvalidConfiguration", n, err)
		}
	}
}

func TestSelectPartitionRandom(t *testing.T) {
	p := NewPartitioner(fixedRandom(4))

	got, err := p.SelectPartition(5, "")
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	p = NewPartitioner(nil)
	for i := 0; i < 200; i++ {
		got, err := p.SelectPartition(7, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, 7)
	}
	assert.Equal(t, 0, p.CachedKeys())
}

func TestSelectPartitionMinInt32Hash(t *testing.T) {
	// abs must not overflow for the most negative hash
	p := NewPartitioner(nil)
	p.hashes["forced"] = math.MinInt32

	got, err := p.SelectPartition(3, "forced")
	require.NoError(t, err)
	assert.Equal(t, int((int64(1)<<31)%3), got)
}
