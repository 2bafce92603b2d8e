package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/models"
)

// Sender delivers one alert to the backend.
type Sender interface {
	Send(ctx context.Context, event models.AlertEvent) (models.SubmitResponse, error)
}

// UploadPool delivers alerts on a fixed number of workers fed by a bounded
// queue. When the queue is full the newest alert is dropped; the capture loop
// never waits on the network.
type UploadPool struct {
	JobQueue chan models.AlertEvent
	Wg       sync.WaitGroup
	StopChan chan struct{}

	sender  Sender
	timeout time.Duration
	metrics *metrics.Client
	log     *zap.SugaredLogger

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

func NewUploadPool(sender Sender, queueSize, numWorkers int, timeout time.Duration, m *metrics.Client, log *zap.SugaredLogger) *UploadPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &UploadPool{
		JobQueue: make(chan models.AlertEvent, queueSize),
		StopChan: make(chan struct{}),
		sender:   sender,
		timeout:  timeout,
		metrics:  m,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	pool.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}
	log.Infof("workers.upload: Started %d upload worker(s) with queue size %d", numWorkers, queueSize)
	return pool
}

func (up *UploadPool) worker(id int) {
	defer up.Wg.Done()
	for {
		select {
		case event, ok := <-up.JobQueue:
			if !ok {
				up.log.Debugf("workers.upload: worker %d stopping: job queue closed", id)
				return
			}
			up.deliver(id, event)

		case <-up.StopChan:
			up.log.Debugf("workers.upload: worker %d stopping: stop signal received", id)
			return
		}
	}
}

// deliver sends one alert. Failures are logged and the alert is discarded.
func (up *UploadPool) deliver(id int, event models.AlertEvent) {
	ctx := up.ctx
	if up.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(up.ctx, up.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := up.sender.Send(ctx, event)
	up.metrics.UpdateUploadLatency(time.Since(start))
	if err != nil {
		up.metrics.UploadsFailed.Add(1)
		up.log.Warnf("workers.upload: worker %d: alert %q not delivered: %v", id, event.AlertText, err)
		return
	}

	up.metrics.UploadsSent.Add(1)
	if !resp.Saved {
		up.log.Warnf("workers.upload: backend accepted alert %q but did not save it (status %s)", event.AlertText, resp.Status)
		return
	}
	up.log.Infof("workers.upload: Delivered alert %q (status %s, men=%d women=%d)", event.AlertText, resp.Status, event.MenCount, event.WomenCount)
}

// Submit queues an alert without blocking. It returns false when the alert
// was dropped because the queue is full or the pool is stopped.
func (up *UploadPool) Submit(event models.AlertEvent) bool {
	up.mu.RLock()
	defer up.mu.RUnlock()
	if up.closed {
		return false
	}

	select {
	case up.JobQueue <- event:
		return true
	default:
		up.metrics.UploadsDropped.Add(1)
		up.log.Warnf("workers.upload: WARNING: upload queue full, dropping alert %q", event.AlertText)
		return false
	}
}

// Stop signals the workers and returns immediately. Queued alerts are dropped
// and in-flight uploads are cancelled.
func (up *UploadPool) Stop() {
	up.mu.Lock()
	up.closed = true
	up.mu.Unlock()

	up.stopOnce.Do(func() {
		close(up.StopChan)
		up.cancel()
		up.log.Infof("workers.upload: Upload pool stopped, %d queued alert(s) dropped", len(up.JobQueue))
	})
}

// Drain stops accepting alerts and waits up to timeout for the queue to be
// delivered. It reports whether everything was sent before the deadline;
// otherwise the pool is stopped.
func (up *UploadPool) Drain(timeout time.Duration) bool {
	up.mu.Lock()
	if !up.closed {
		up.closed = true
		close(up.JobQueue)
	}
	up.mu.Unlock()

	done := make(chan struct{})
	go func() {
		up.Wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		up.Stop()
		return true
	case <-time.After(timeout):
		up.Stop()
		return false
	}
}
