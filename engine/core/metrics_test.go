package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHitRate(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.HitRate())

	m.CacheHits.Add(3)
	m.CacheMisses.Add(1)
	assert.InDelta(t, 0.75, m.HitRate(), 1e-9)
}

func TestRecordCommitRollingAverage(t *testing.T) {
	m := NewMetrics()

	// The average folds in once a full window has been recorded.
	for i := uint8(0); i < AVG_COUNT; i++ {
		m.RecordCommit(0.002) // 2ms
	}
	assert.InDelta(t, 2.0, m.CommitTime(), 1e-9)
	assert.Equal(t, uint64(AVG_COUNT), m.CommitCount.Load())
}
