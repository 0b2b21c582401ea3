// cmd/journal/main.go is an asynchronous journal drainer that pops scoring
// actions from the Redis queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quizbowl/qbscore/internal/cache"
	"github.com/quizbowl/qbscore/internal/config"
	"github.com/quizbowl/qbscore/internal/database"
)

// JournalService encapsulates the Redis + DB logic for draining the scoring
// action journal into the game_actions table.
type JournalService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []cache.ActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewJournalService constructs a JournalService from environment variables or defaults.
func NewJournalService() *JournalService {
	batchSize := config.GetEnvInt("JOURNAL_BATCH_SIZE", 20)
	flushMs := config.GetEnvInt("JOURNAL_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: config.GetEnv("REDIS_ADDR", "localhost:6379"),
		DB:   config.GetEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &JournalService{
		redisClient: rdb,
		queueName:   config.GetEnv("JOURNAL_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]cache.ActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and starts the queue-draining loop.
func (js *JournalService) Run() {
	if err := database.ConnectDB(); err != nil {
		logrus.Fatalf("journal requires a database connection: %v", err)
	}

	go js.readRedisLoop()

	logrus.Info("qbscore-journal service started")
	<-js.ctx.Done()
	js.flushBatchToDB()
	logrus.Info("qbscore-journal shutting down")
}

// readRedisLoop continuously uses BLPop to retrieve action records from the
// journal queue, flushing the accumulated batch on a timer.
func (js *JournalService) readRedisLoop() {
	ticker := time.NewTicker(js.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-js.ctx.Done():
			return

		case <-ticker.C:
			js.flushBatchToDB()

		default:
			// BLPop with a short timeout so context cancellation is handled.
			res, err := js.redisClient.BLPop(js.ctx, 3*time.Second, js.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if js.ctx.Err() != nil {
					return
				}
				logrus.Warnf("BLPop: %v", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.ActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				logrus.Warnf("invalid action record: %v", err)
				continue
			}
			js.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the
// threshold is reached.
func (js *JournalService) appendToBatch(record cache.ActionRecord) {
	js.batchMu.Lock()
	defer js.batchMu.Unlock()

	js.batch = append(js.batch, record)
	if len(js.batch) >= js.batchSize {
		js.flushBatchLocked()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (js *JournalService) flushBatchToDB() {
	js.batchMu.Lock()
	defer js.batchMu.Unlock()
	js.flushBatchLocked()
}

func (js *JournalService) flushBatchLocked() {
	if len(js.batch) == 0 {
		return
	}
	batchCopy := make([]cache.ActionRecord, len(js.batch))
	copy(batchCopy, js.batch)
	js.batch = js.batch[:0]

	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("flushBatchToDB: %v", err)
	} else {
		logrus.Infof("flushed %d actions to DB", len(batchCopy))
	}
}

// insertActionTx inserts a single action record into the game_actions table.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	jsonPayload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO game_actions (
			game_id, action_index, cycle_index, action_type, payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, q,
		rec.GameID, rec.ActionIndex, rec.CycleIndex, rec.ActionType, jsonPayload, rec.Timestamp,
	)
	return err
}

// beginTxFunc starts a transaction on the pool, calls f with it, and commits
// or rolls back as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Stop gracefully stops the journal service.
func (js *JournalService) Stop() {
	js.cancelFn()
}

func main() {
	js := NewJournalService()
	go js.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	js.Stop()
	logrus.Info("journal shutdown complete")
}
