package core

import "sync/atomic"

const AVG_COUNT uint8 = 30

// Metrics tracks allocation and commit activity for one geometry pool.
// Counters are updated from traversal threads; the commit-time average is
// only touched by the commit thread.
type Metrics struct {
	CacheHits           atomic.Uint64
	CacheMisses         atomic.Uint64
	RecordsBuilt        atomic.Uint64
	RecordsReleased     atomic.Uint64
	StagedBytes         atomic.Uint64
	StandaloneFallbacks atomic.Uint64
	CommitCount         atomic.Uint64

	commitAVGCounter uint8
	commitMStimes    [AVG_COUNT]float64
	commitMSavg      float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		commitMStimes: [AVG_COUNT]float64{0},
	}
}

// RecordCommit folds one commit duration into the rolling average.
// Commit-thread only.
func (m *Metrics) RecordCommit(elapsedSeconds float64) {
	commitMS := elapsedSeconds * 1000.0
	m.commitMStimes[m.commitAVGCounter] = commitMS
	if m.commitAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.commitMStimes[i]
		}
		m.commitMSavg = sum / float64(AVG_COUNT)
	}
	m.commitAVGCounter++
	m.commitAVGCounter %= AVG_COUNT

	m.CommitCount.Add(1)
}

// CommitTime returns the rolling average commit time in milliseconds.
func (m *Metrics) CommitTime() float64 {
	return m.commitMSavg
}

// HitRate returns the fraction of allocation calls served from cache.
func (m *Metrics) HitRate() float64 {
	hits := m.CacheHits.Load()
	total := hits + m.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
