package testbed

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/geopool/engine/config"
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/geometry"
	"github.com/spaghettifunk/geopool/engine/renderer"
	"github.com/spaghettifunk/geopool/engine/systems"
)

// TestGame drives the geometry pool the way a real scene would: parallel
// workers sync primitives against the pool, then the frame thread commits.
type TestGame struct {
	cfg     *config.Config
	cfgPath string
	backend renderer.Backend
	pool    *geometry.GeometryPool
	jobs    *systems.JobSystem
	watcher *config.Watcher

	mu            sync.Mutex
	vertexHandles []*geometry.VertexHandle
	indexHandles  []*geometry.IndexHandle

	done chan struct{}
}

func NewTestGame(cfg *config.Config, cfgPath string, backend renderer.Backend) (*TestGame, error) {
	jobs, err := systems.NewJobSystem(cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	if err != nil {
		return nil, err
	}

	tg := &TestGame{
		cfg:     cfg,
		cfgPath: cfgPath,
		backend: backend,
		pool:    geometry.NewGeometryPool(backend, cfg.Pool),
		jobs:    jobs,
		done:    make(chan struct{}),
	}

	if cfgPath != "" {
		watcher, err := config.NewWatcher(cfgPath)
		if err != nil {
			core.LogWarn("config watcher unavailable: %s", err.Error())
		} else {
			tg.watcher = watcher
		}
	}
	return tg, nil
}

// Run executes the frame loop: traversal jobs, barrier, commit.
func (tg *TestGame) Run(frames int) error {
	for frame := 0; frame < frames; frame++ {
		select {
		case <-tg.done:
			core.LogInfo("shutdown requested, stopping at frame %d", frame)
			return nil
		default:
		}

		tg.reloadConfigIfChanged()
		tg.syncScene(frame)

		// All traversal work must land before the commit for this frame.
		tg.jobs.Wait()
		if err := tg.pool.Commit(); err != nil {
			return err
		}
	}

	metrics := tg.pool.Metrics()
	core.LogInfo("ran with %.0f%% cache hit rate, %d records built, %d bytes staged, avg commit %.3fms",
		metrics.HitRate()*100,
		metrics.RecordsBuilt.Load(),
		metrics.StagedBytes.Load(),
		metrics.CommitTime())
	return nil
}

// syncScene submits one job per primitive. Half the planes share the same
// parameters on purpose, so their geometry deduplicates onto one record.
func (tg *TestGame) syncScene(frame int) {
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("plane-%d", i)
		segments := uint32(1 + i%2)
		tg.jobs.Submit(systems.JobTask{
			Name: name,
			OnStart: func() error {
				sources, indices := geometry.GeneratePlaneSources(10, 10, segments, segments, 1, 1)
				return tg.allocate(name, sources, indices)
			},
		})
	}
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("cube-%d", i)
		size := float32(1 + frame%3)
		tg.jobs.Submit(systems.JobTask{
			Name: name,
			OnStart: func() error {
				sources, indices := geometry.GenerateCubeSources(size, size, size, 1, 1)
				return tg.allocate(name, sources, indices)
			},
		})
	}
}

func (tg *TestGame) allocate(name string, sources []geometry.VertexSource, indices geometry.TriangleIndices) error {
	vertexHandle, err := tg.pool.AllocateVertices(name, sources, nil)
	if err != nil {
		return err
	}
	indexHandle, err := tg.pool.AllocateIndices(name, indices, vertexHandle.GetStartVertex(), nil)
	if err != nil {
		vertexHandle.Release()
		return err
	}

	tg.mu.Lock()
	tg.vertexHandles = append(tg.vertexHandles, vertexHandle)
	tg.indexHandles = append(tg.indexHandles, indexHandle)
	tg.mu.Unlock()
	return nil
}

func (tg *TestGame) reloadConfigIfChanged() {
	if tg.watcher == nil {
		return
	}
	select {
	case <-tg.watcher.Changes():
		// Give the editor a moment to finish writing.
		time.Sleep(10 * time.Millisecond)
		cfg, err := config.Load(tg.cfgPath)
		if err != nil {
			core.LogError("config reload failed: %s", err.Error())
			return
		}
		tg.cfg = cfg
		core.SetLogLevel(cfg.Log.Level)
		core.LogInfo("config reloaded")
	default:
	}
}

// Shutdown releases every held handle and tears down the pool. Safe to
// call from a signal goroutine; the frame loop stops at the next frame.
func (tg *TestGame) Shutdown() error {
	select {
	case <-tg.done:
		return nil
	default:
		close(tg.done)
	}
	return nil
}

// Cleanup must run on the frame thread after Run has returned.
func (tg *TestGame) Cleanup() error {
	if tg.watcher != nil {
		tg.watcher.Close()
	}
	if err := tg.jobs.Shutdown(); err != nil {
		return err
	}

	tg.mu.Lock()
	for _, h := range tg.vertexHandles {
		h.Release()
	}
	for _, h := range tg.indexHandles {
		h.Release()
	}
	tg.vertexHandles = nil
	tg.indexHandles = nil
	tg.mu.Unlock()

	tg.pool.Shutdown()
	return tg.backend.Shutdown()
}
