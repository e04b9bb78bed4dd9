// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/models"
)

// DefaultQueueName is the Redis list (queue) name for room action records.
const DefaultQueueName = "uno_actions"

// ConnectRedis opens a client and verifies it with a PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// PublishRoomAction serializes the record to JSON and pushes it onto the queue.
func PublishRoomAction(ctx context.Context, rdb redis.Cmdable, queueName string, record models.RoomAction) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomAction: %w", err)
	}
	if err := rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// Publisher forwards room actions to Redis from a background goroutine so
// rooms never wait on the network while holding their lock. When its buffer
// is full, records are dropped and logged.
type Publisher struct {
	rdb       redis.Cmdable
	queueName string
	logger    *logrus.Logger

	records chan models.RoomAction
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPublisher starts a publisher with room for buffer pending records.
func NewPublisher(rdb redis.Cmdable, queueName string, buffer int, logger *logrus.Logger) *Publisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	if buffer <= 0 {
		buffer = 1024
	}
	p := &Publisher{
		rdb:       rdb,
		queueName: queueName,
		logger:    logger,
		records:   make(chan models.RoomAction, buffer),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// LogAction queues a record without blocking.
func (p *Publisher) LogAction(rec models.RoomAction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.records <- rec:
	default:
		p.logger.Warnf("Action queue full, dropping %s #%d for room %s.", rec.ActionType, rec.ActionIndex, rec.RoomID)
	}
}

// Close stops accepting records and waits for the queued ones to be sent.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.records)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for rec := range p.records {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := PublishRoomAction(ctx, p.rdb, p.queueName, rec); err != nil {
			p.logger.Errorf("Failed to publish %s for room %s: %v", rec.ActionType, rec.RoomID, err)
		}
		cancel()
	}
}
