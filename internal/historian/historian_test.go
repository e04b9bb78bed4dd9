// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/uno/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// chanSource serves records from a channel.
type chanSource struct {
	ch chan models.RoomAction
}

func (s *chanSource) Pop(ctx context.Context, timeout time.Duration) (models.RoomAction, bool, error) {
	select {
	case <-ctx.Done():
		return models.RoomAction{}, false, ctx.Err()
	case rec := <-s.ch:
		return rec, true, nil
	case <-time.After(timeout):
		return models.RoomAction{}, false, nil
	}
}

type memorySink struct {
	mu       sync.Mutex
	batches  [][]models.RoomAction
	idle     []string
	failNext bool
}

func (m *memorySink) InsertRoomActions(ctx context.Context, recs []models.RoomAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("db down")
	}
	m.batches = append(m.batches, append([]models.RoomAction(nil), recs...))
	return nil
}

func (m *memorySink) MarkRoomIdle(ctx context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle = append(m.idle, roomID)
	return true, nil
}

func (m *memorySink) indexes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, b := range m.batches {
		for _, r := range b {
			out = append(out, r.ActionIndex)
		}
	}
	return out
}

func action(room string, idx int) models.RoomAction {
	return models.RoomAction{RoomID: room, ActionIndex: idx, ActionType: "draw", Timestamp: time.Now().UnixMilli()}
}

func TestAcceptFlushesFullBatch(t *testing.T) {
	sink := &memorySink{}
	hs := NewService(&chanSource{}, sink, quietLogger(), Options{BatchSize: 3})
	ctx := context.Background()

	hs.Accept(ctx, action("r1", 1))
	hs.Accept(ctx, action("r1", 2))
	assert.Empty(t, sink.batches)

	hs.Accept(ctx, action("r1", 3))
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
}

func TestFlushRetriesFailedBatchInOrder(t *testing.T) {
	sink := &memorySink{failNext: true}
	hs := NewService(&chanSource{}, sink, quietLogger(), Options{BatchSize: 2})
	ctx := context.Background()

	hs.Accept(ctx, action("r1", 1))
	hs.Accept(ctx, action("r1", 2)) // flush fails, batch kept
	assert.Empty(t, sink.batches)

	hs.Accept(ctx, action("r1", 3))
	assert.Equal(t, []int{1, 2, 3}, sink.indexes())
}

func TestMarkIdleRooms(t *testing.T) {
	sink := &memorySink{}
	hs := NewService(&chanSource{}, sink, quietLogger(), Options{BatchSize: 100, Inactivity: time.Minute})
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hs.now = func() time.Time { return clock }
	ctx := context.Background()

	hs.Accept(ctx, action("old", 1))
	clock = clock.Add(50 * time.Second)
	hs.Accept(ctx, action("new", 1))

	clock = clock.Add(20 * time.Second) // old: 70s, new: 20s
	hs.MarkIdleRooms(ctx)

	assert.Equal(t, []string{"old"}, sink.idle)
	assert.Equal(t, []int{1, 1}, sink.indexes(), "pending actions are flushed before marking")

	hs.MarkIdleRooms(ctx)
	assert.Equal(t, []string{"old"}, sink.idle, "an idle room is marked once")

	clock = clock.Add(time.Minute)
	hs.MarkIdleRooms(ctx)
	assert.ElementsMatch(t, []string{"old", "new"}, sink.idle)
}

func TestRunDrainsSourceAndFlushesOnShutdown(t *testing.T) {
	src := &chanSource{ch: make(chan models.RoomAction, 10)}
	sink := &memorySink{}
	hs := NewService(src, sink, quietLogger(), Options{
		BatchSize:  100,
		FlushDelay: time.Hour, // only the shutdown flush writes
		PopTimeout: 10 * time.Millisecond,
	})

	for i := 1; i <= 5; i++ {
		src.ch <- action("r1", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Run(ctx) }()

	require.Eventually(t, func() bool { return len(src.ch) == 0 }, 2*time.Second, 5*time.Millisecond)
	// the last popped record may still be on its way into the batch
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sink.indexes())
}

// fakeRedis answers BLPOP from a fixed list of replies.
type fakeRedis struct {
	redis.Cmdable
	replies []*redis.StringSliceCmd
}

func (f *fakeRedis) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r
}

func TestRedisSourcePop(t *testing.T) {
	good, err := json.Marshal(action("r1", 7))
	require.NoError(t, err)

	rdb := &fakeRedis{replies: []*redis.StringSliceCmd{
		redis.NewStringSliceResult([]string{"uno_actions", string(good)}, nil),
		redis.NewStringSliceResult(nil, redis.Nil),
		redis.NewStringSliceResult([]string{"uno_actions", "not json"}, nil),
		redis.NewStringSliceResult(nil, errors.New("connection reset")),
	}}
	src := RedisSource{Client: rdb, QueueName: "uno_actions"}
	ctx := context.Background()

	rec, ok, err := src.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, rec.ActionIndex)

	_, ok, err = src.Pop(ctx, time.Second)
	assert.NoError(t, err)
	assert.False(t, ok, "timeout yields nothing")

	_, _, err = src.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, ErrBadRecord)

	_, _, err = src.Pop(ctx, time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadRecord)
}
