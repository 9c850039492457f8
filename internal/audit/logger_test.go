package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDB implements database.Querier for testing.
type mockDB struct {
	mu    sync.Mutex
	execs int
	args  int
}

func (m *mockDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs++
	m.args += len(args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return nil
}

func (m *mockDB) insertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.execs
}

func (m *mockDB) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.args / 6
}

func testEvent() Event {
	return Event{
		RequestID: "req-1",
		Action:    ActionSlackRequestAccepted,
		Outcome:   "accepted",
		Source:    SourceSlack,
	}
}

func TestAsyncLogger_FlushesOnInterval(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{
		BufferSize:    100,
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
	})

	logger.Log(context.Background(), testEvent())

	assert.Eventually(t, func() bool { return db.insertCount() >= 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, logger.Close())
}

func TestAsyncLogger_FlushesOnBatchSize(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{
		BufferSize:    100,
		BatchSize:     3,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 3; i++ {
		logger.Log(context.Background(), testEvent())
	}

	assert.Eventually(t, func() bool { return db.insertCount() >= 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, logger.Close())
	assert.Equal(t, 3, db.eventCount())
}

func TestAsyncLogger_CloseFlushesPending(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{
		BufferSize:    100,
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 5; i++ {
		logger.Log(context.Background(), testEvent())
	}

	require.NoError(t, logger.Close())
	assert.Equal(t, 5, db.eventCount())
}

func TestAsyncLogger_DropsWhenBufferFull(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{
		BufferSize:    2,
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 50; i++ {
		logger.Log(context.Background(), testEvent())
	}

	require.NoError(t, logger.Close())
	assert.Equal(t, int64(50), logger.Dropped()+int64(db.eventCount()))
}

func TestAsyncLogger_LogAfterCloseIsDropped(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{})
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	logger.Log(context.Background(), testEvent())

	assert.Equal(t, int64(1), logger.Dropped())
	assert.Equal(t, 0, db.eventCount())
}

func TestAsyncLogger_ConcurrentLogAndCloseAccountsForEveryEvent(t *testing.T) {
	for round := 0; round < 20; round++ {
		db := &mockDB{}
		logger := NewAsyncLogger(db, NewStore(), LoggerConfig{
			BufferSize:    1000,
			BatchSize:     1000,
			FlushInterval: 10 * time.Second,
		})

		const writers, perWriter = 8, 50
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					logger.Log(context.Background(), testEvent())
				}
			}()
		}
		require.NoError(t, logger.Close())
		wg.Wait()

		assert.Equal(t, int64(writers*perWriter), logger.Dropped()+int64(db.eventCount()), "round %d", round)
	}
}
