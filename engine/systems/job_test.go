package systems

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	js, err := NewJobSystem(0, 8)
	assert.Nil(t, js)
	assert.ErrorIs(t, err, ErrNoWorkers)

	js, err = NewJobSystem(2, -1)
	assert.Nil(t, js)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 16)
	require.NoError(t, err)
	defer js.Shutdown()

	var started, completed atomic.Int32
	for i := 0; i < 32; i++ {
		js.Submit(JobTask{
			Name: fmt.Sprintf("job-%d", i),
			OnStart: func() error {
				started.Add(1)
				return nil
			},
			OnComplete: func() {
				completed.Add(1)
			},
		})
	}
	js.Wait()

	assert.Equal(t, int32(32), started.Load())
	assert.Equal(t, int32(32), completed.Load())
}

func TestJobSystemReportsFailures(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	var failures atomic.Int32
	var completions atomic.Int32
	boom := fmt.Errorf("boom")

	js.Submit(JobTask{
		Name:    "failing",
		OnStart: func() error { return boom },
		OnComplete: func() {
			completions.Add(1)
		},
		OnFailure: func(err error) {
			assert.ErrorIs(t, err, boom)
			failures.Add(1)
		},
	})
	js.Wait()

	assert.Equal(t, int32(1), failures.Load())
	assert.Equal(t, int32(0), completions.Load())
}

func TestJobSystemWaitIsABarrier(t *testing.T) {
	js, err := NewJobSystem(4, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	var done atomic.Int32
	for i := 0; i < 16; i++ {
		js.Submit(JobTask{
			Name:    "work",
			OnStart: func() error { done.Add(1); return nil },
		})
	}
	js.Wait()
	// Every job has observably finished once Wait returns.
	assert.Equal(t, int32(16), done.Load())
}
