package postworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// PublishJob is one unit of publish work bound to a single target listing.
type PublishJob struct {
	TargetID string
	PostID   string
	Handler  func(ctx context.Context) error
}

// PoolStats carries real-time metrics for the pool.
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveTargets   map[string]int `json:"active_targets"` // targetID -> worker_id
}

// WorkerStats carries per-worker metrics.
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeTargetEntry struct {
	workerID  int
	updatedAt time.Time
}

// PublishWorkerPool fans publish work out over a fixed set of workers.
// Jobs are sharded by target id, so publishes against the same listing
// run strictly in order while different listings proceed in parallel.
type PublishWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	activeMu        sync.RWMutex
	activeTargets   map[string]activeTargetEntry
	startTime       time.Time
}

type worker struct {
	id            int
	jobQueue      chan PublishJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *PublishWorkerPool
}

func NewPublishWorkerPool(numWorkers, queueSize int) *PublishWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &PublishWorkerPool{
		numWorkers:    numWorkers,
		queueSize:     queueSize,
		workers:       make([]*worker, numWorkers),
		activeTargets: make(map[string]activeTargetEntry),
		stopCh:        make(chan struct{}),
		startTime:     time.Now(),
	}
}

// Start launches the workers plus a janitor that expires stale active
// target entries.
func (p *PublishWorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				now := time.Now()
				p.activeMu.Lock()
				for k, v := range p.activeTargets {
					if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
						delete(p.activeTargets, k)
					}
				}
				p.activeMu.Unlock()
			}
		}
	}()

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan PublishJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[POST_WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch routes a job to its target's worker without blocking and
// reports whether the job was enqueued. Callers use the false return to
// apply backpressure instead of piling work up.
func (p *PublishWorkerPool) TryDispatch(job PublishJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardForTarget(job.TargetID)
	atomic.AddInt64(&p.totalDispatched, 1)

	p.activeMu.Lock()
	p.activeTargets[job.TargetID] = activeTargetEntry{workerID: shard, updatedAt: time.Now()}
	p.activeMu.Unlock()

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	p.activeMu.Lock()
	delete(p.activeTargets, job.TargetID)
	p.activeMu.Unlock()

	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[POST_WORKER_POOL] Worker %d queue full (or stopped), dropping job for target %s post %s",
		shard, job.TargetID, job.PostID)
	return false
}

// Dispatch is TryDispatch for callers that do not care about drops.
func (p *PublishWorkerPool) Dispatch(job PublishJob) {
	_ = p.TryDispatch(job)
}

// Stop shuts the pool down gracefully, letting in-flight jobs finish.
func (p *PublishWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[POST_WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}

		p.wg.Wait()

		logrus.Info("[POST_WORKER_POOL] All workers stopped")
	})
}

// shardForTarget maps a target id to a worker via consistent hashing.
func (p *PublishWorkerPool) shardForTarget(targetID string) int {
	h := fnv.New32a()
	h.Write([]byte(targetID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats returns a live snapshot of the pool metrics.
func (p *PublishWorkerPool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	activeWorkers := 0

	for i, w := range p.workers {
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}

		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		}
	}

	now := time.Now()
	p.activeMu.Lock()
	activeSnapshot := make(map[string]int, len(p.activeTargets))
	for k, v := range p.activeTargets {
		if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
			delete(p.activeTargets, k)
			continue
		}
		activeSnapshot[k] = v.workerID
	}
	p.activeMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveTargets:   activeSnapshot,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[POST_WORKER_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[POST_WORKER_POOL] Worker %d shutting down", w.id)
				return
			}

			func() {
				atomic.StoreInt32(&w.isProcessing, 1)
				defer func() {
					if r := recover(); r != nil {
						atomic.AddInt64(&w.pool.totalErrors, 1)
						logrus.Errorf("[POST_WORKER_POOL] Worker %d panic for target %s: %v", w.id, job.TargetID, r)
					}
					atomic.StoreInt32(&w.isProcessing, 0)
					atomic.AddInt64(&w.jobsProcessed, 1)
					atomic.AddInt64(&w.pool.totalProcessed, 1)
				}()

				if err := job.Handler(w.ctx); err != nil {
					atomic.AddInt64(&w.pool.totalErrors, 1)
					logrus.WithError(err).Errorf("[POST_WORKER_POOL] Worker %d job failed for target %s post %s",
						w.id, job.TargetID, job.PostID)
				}
			}()

		case <-w.ctx.Done():
			logrus.Debugf("[POST_WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

// drainQueue finishes pending jobs before shutdown.
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						atomic.AddInt64(&w.pool.totalErrors, 1)
						logrus.Errorf("[POST_WORKER_POOL] Worker %d drain panic: %v", w.id, r)
					}
				}()
				if err := job.Handler(w.ctx); err != nil {
					logrus.WithError(err).Errorf("[POST_WORKER_POOL] Worker %d drain job failed", w.id)
				}
			}()
		default:
			return
		}
	}
}
