// Package historian drains room action records from the Redis queue and
// persists them to PostgreSQL in batches, marking rooms idle after a period
// without actions.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/models"
)

// Source yields queued action records. ok is false when nothing arrived
// within the timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (rec models.RoomAction, ok bool, err error)
}

// Sink persists records and room status.
type Sink interface {
	InsertRoomActions(ctx context.Context, recs []models.RoomAction) error
	MarkRoomIdle(ctx context.Context, roomID string) (bool, error)
}

// ErrBadRecord wraps a queue entry that could not be decoded.
var ErrBadRecord = errors.New("invalid action record")

// RedisSource pops JSON records from a Redis list with BLPOP.
type RedisSource struct {
	Client    redis.Cmdable
	QueueName string
}

// Pop blocks for up to timeout waiting for one record.
func (s RedisSource) Pop(ctx context.Context, timeout time.Duration) (models.RoomAction, bool, error) {
	res, err := s.Client.BLPop(ctx, timeout, s.QueueName).Result()
	if errors.Is(err, redis.Nil) {
		return models.RoomAction{}, false, nil
	}
	if err != nil {
		return models.RoomAction{}, false, fmt.Errorf("BLPop %s: %w", s.QueueName, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return models.RoomAction{}, false, nil
	}
	var rec models.RoomAction
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return models.RoomAction{}, false, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	return rec, true, nil
}

// PostgresSink writes through a pgx pool.
type PostgresSink struct {
	Pool *pgxpool.Pool
}

func (s PostgresSink) InsertRoomActions(ctx context.Context, recs []models.RoomAction) error {
	return database.InsertRoomActions(ctx, s.Pool, recs)
}

func (s PostgresSink) MarkRoomIdle(ctx context.Context, roomID string) (bool, error) {
	return database.MarkRoomIdle(ctx, s.Pool, roomID)
}

// Options tunes a Service. Zero values take the defaults noted per field.
type Options struct {
	BatchSize     int           // 20
	FlushDelay    time.Duration // 500ms
	Inactivity    time.Duration // 10m
	CheckInterval time.Duration // 1m
	PopTimeout    time.Duration // 3s
}

// Service moves records from a Source to a Sink.
type Service struct {
	source Source
	sink   Sink
	logger *logrus.Logger
	opts   Options

	batchMu sync.Mutex
	batch   []models.RoomAction

	activityMu   sync.Mutex
	lastActivity map[string]time.Time // roomID -> when its last record arrived

	now func() time.Time
}

// NewService builds a service; call Run to start it.
func NewService(source Source, sink Sink, logger *logrus.Logger, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	return &Service{
		source:       source,
		sink:         sink,
		logger:       logger,
		opts:         opts,
		batch:        make([]models.RoomAction, 0, opts.BatchSize),
		lastActivity: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still batched.
func (hs *Service) Run(ctx context.Context) error {
	hs.logger.Info("uno-historian service started.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { hs.readLoop(gctx); return nil })
	g.Go(func() error { hs.flushLoop(gctx); return nil })
	g.Go(func() error { hs.inactivityLoop(gctx); return nil })
	err := g.Wait()

	// ctx is done; give the final flush its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hs.flush(flushCtx)

	hs.logger.Info("uno-historian shutting down.")
	return err
}

func (hs *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := hs.source.Pop(ctx, hs.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrBadRecord) {
				hs.logger.Warnf("Skipping queue entry: %v", err)
				continue
			}
			hs.logger.Errorf("Queue read failed: %v", err)
			// back off so a dead Redis doesn't spin the loop
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		hs.Accept(ctx, rec)
	}
}

// Accept records activity for rec's room and batches it, flushing once the
// batch is full.
func (hs *Service) Accept(ctx context.Context, rec models.RoomAction) {
	hs.activityMu.Lock()
	hs.lastActivity[rec.RoomID] = hs.now()
	hs.activityMu.Unlock()

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.opts.BatchSize
	hs.batchMu.Unlock()

	if full {
		hs.flush(ctx)
	}
}

func (hs *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.flush(ctx)
		}
	}
}

// flush writes the current batch in one transaction. A failed batch is put
// back in front of anything that arrived meanwhile and retried next time.
func (hs *Service) flush(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	pending := make([]models.RoomAction, len(hs.batch))
	copy(pending, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	if err := hs.sink.InsertRoomActions(ctx, pending); err != nil {
		hs.logger.Errorf("flush of %d action(s) failed: %v", len(pending), err)
		hs.batchMu.Lock()
		hs.batch = append(pending, hs.batch...)
		hs.batchMu.Unlock()
		return
	}
	hs.logger.Debugf("Flushed %d action(s) to DB.", len(pending))
}

func (hs *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.opts.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.MarkIdleRooms(ctx)
		}
	}
}

// MarkIdleRooms marks every room whose last record is older than the
// inactivity period and stops tracking it until it is active again.
func (hs *Service) MarkIdleRooms(ctx context.Context) {
	now := hs.now()
	var idle []string
	hs.activityMu.Lock()
	for roomID, last := range hs.lastActivity {
		if now.Sub(last) > hs.opts.Inactivity {
			idle = append(idle, roomID)
		}
	}
	hs.activityMu.Unlock()

	if len(idle) == 0 {
		return
	}
	// room rows are created by their first flushed action
	hs.flush(ctx)
	for _, roomID := range idle {
		changed, err := hs.sink.MarkRoomIdle(ctx, roomID)
		if err != nil {
			hs.logger.Errorf("failed to mark room %s idle: %v", roomID, err)
			continue
		}
		hs.activityMu.Lock()
		if last, ok := hs.lastActivity[roomID]; ok && now.Sub(last) > hs.opts.Inactivity {
			delete(hs.lastActivity, roomID)
		}
		hs.activityMu.Unlock()
		if changed {
			hs.logger.Infof("Marked room %s as 'idle' due to inactivity.", roomID)
		}
	}
}
