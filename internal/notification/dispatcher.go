package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// WebhookJob is one event delivery queued for a background worker.
type WebhookJob struct {
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

type Worker struct {
	ID         int
	WorkerPool chan chan WebhookJob
	JobChannel chan WebhookJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan WebhookJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan WebhookJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(WebhookJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {

			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker delivering webhook", "worker_id", w.ID, "event_id", job.EventID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher delivers poll and vote events to an external webhook endpoint
// through a bounded worker pool. Deliveries are best effort; a full queue
// drops the event rather than blocking the caller.
type Dispatcher struct {
	webhookURL     string
	requestTimeout time.Duration
	logger         *slog.Logger

	jobQueue   chan WebhookJob
	workerPool chan chan WebhookJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	WebhookURL     string
	RequestTimeout time.Duration
	MaxWorkers     int
	JobQueueSize   int
}

func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	requestTimeout := config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		webhookURL:     config.WebhookURL,
		requestTimeout: requestTimeout,
		logger:         logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan WebhookJob, jobQueueSize),
		workerPool: make(chan chan WebhookJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {

		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:

			select {
			case jobChannel := <-d.workerPool:

				select {
				case jobChannel <- job:

				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}

// Enqueue queues an event delivery; it returns an error only when the queue
// is full.
func (d *Dispatcher) Enqueue(job WebhookJob) error {
	select {
	case d.jobQueue <- job:
		d.logger.Debug("webhook delivery queued",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("notification queue full, dropping event",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"queue_capacity", cap(d.jobQueue))
		return fmt.Errorf("notification queue full")
	}
}

func (d *Dispatcher) deliver(job WebhookJob) {
	jsonData, err := json.Marshal(job)
	if err != nil {
		d.logger.Error("failed to marshal webhook payload", "error", err, "event_id", job.EventID)
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		d.logger.Error("failed to create webhook request", "error", err, "event_id", job.EventID)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: d.requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		d.logger.Error("webhook delivery failed",
			"error", err,
			"event_id", job.EventID,
			"event_type", job.EventType)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		d.logger.Info("webhook delivered",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"status_code", resp.StatusCode)
	} else {
		d.logger.Warn("webhook endpoint returned error",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"status_code", resp.StatusCode)
	}
}
