package worker

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"babagram/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second
)

// MessageHandler handles one parsed stream message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg queue.NotificationMessage) error
}

// Manager runs worker goroutines that consume the notification stream.
type Manager struct {
	consumer    queue.Consumer
	handler     MessageHandler
	log         zerolog.Logger
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	// instance keeps consumer names stable across restarts of the same host
	// so pending messages are replayed by their previous owner
	instance string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
	// InstanceID prefixes consumer names; defaults to the hostname.
	InstanceID string
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func NewManager(consumer queue.Consumer, handler MessageHandler, cfg ManagerConfig, log zerolog.Logger) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = defaultInstanceID()
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		log:         log.With().Str("component", "worker_manager").Logger(),
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		instance:    cfg.InstanceID,
	}
}

// Start ensures the consumer group and spins up the workers. Call Stop to
// shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		name := m.consumerName(i)
		m.wg.Add(1)
		go m.runWorker(name)
	}

	m.log.Info().
		Int("workers", m.workerCount).
		Str("stream", queue.StreamNotifications).
		Str("group", queue.ConsumerGroupNotifications).
		Msg("workers started")
	return nil
}

// Stop cancels the workers and blocks until they return.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.log.Info().Msg("workers stopped")
}

func (m *Manager) runWorker(consumerName string) {
	defer m.wg.Done()
	log := m.log.With().Str("consumer", consumerName).Logger()

	// Crash recovery: replay what this consumer left unacked
	m.processPending(log, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(log, consumerName)
		}
	}
}

func (m *Manager) processPending(log zerolog.Logger, consumerName string) {
	for m.ctx.Err() == nil {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications, consumerName, m.batchSize)
		if err != nil {
			log.Error().Err(err).Msg("read pending failed")
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Info().Int("count", len(messages)).Msg("replaying pending messages")
		m.handleMessages(log, messages)
	}
}

func (m *Manager) processMessages(log zerolog.Logger, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamNotifications,
		queue.ConsumerGroupNotifications,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("read failed")
		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	m.handleMessages(log, messages)
}

// handleMessages processes a batch and acks every message, failed ones
// included, so a poison message cannot loop forever.
func (m *Manager) handleMessages(log zerolog.Logger, messages []queue.Message) {
	for _, msg := range messages {
		if msg.Err == nil {
			if err := m.handler.HandleMessage(m.ctx, msg.Payload); err != nil {
				log.Error().Err(err).Str("msg_id", msg.ID).Msg("handler error")
			}
		}
		if err := m.consumer.Ack(m.ctx, queue.StreamNotifications, queue.ConsumerGroupNotifications, msg.ID); err != nil {
			log.Error().Err(err).Str("msg_id", msg.ID).Msg("ack failed")
		}
	}
}

func (m *Manager) consumerName(workerID int) string {
	return "worker-" + m.instance + "-" + strconv.Itoa(workerID)
}

func defaultInstanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
