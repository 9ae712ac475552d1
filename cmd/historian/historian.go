// cmd/historian/historian.go is an asynchronous archival service that pops
// resolved-round records from a Redis queue and persists them to PostgreSQL.
// It also sweeps live sessions that have gone quiet without ever being ended.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/wordrelay/relay/internal/cache"
	"github.com/wordrelay/relay/internal/database"
	"github.com/wordrelay/relay/internal/store"
)

// HistorianService encapsulates the Redis + DB logic for capturing round
// records and sweeping sessions abandoned past an inactivity threshold.
type HistorianService struct {
	redisClient *redis.Client
	sessions    *store.RedisStore
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration
	lastActive  sync.Map // map[string]time.Time, keyed by session code

	batchMu  sync.Mutex
	batch    []cache.RoundRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment
// variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := cache.GetEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := cache.GetEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := cache.GetEnvInt("SESSION_INACTIVITY_TIMEOUT_SEC", 3600)

	rdb := redis.NewClient(&redis.Options{
		Addr: cache.GetEnv("REDIS_ADDR", "localhost:6379"),
		DB:   cache.GetEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		sessions:    store.NewRedisStore(rdb),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.RoundRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads records from the Redis queue, accumulates a batch,
//     and flushes it to the DB.
//  2. A periodic sweep removing sessions with no round activity past the
//     inactivity threshold, so unended sessions do not pile up in Redis.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("relay-historian service started.")
	<-hs.ctx.Done()
	log.Println("relay-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := cache.GetEnv("ROUND_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.RoundRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid round record: %v\n", err)
				continue
			}

			hs.lastActive.Store(record.SessionCode, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes once the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.RoundRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchLocked()
}

func (hs *HistorianService) flushBatchLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.RoundRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertRoundEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoundEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d round events to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically removes live sessions whose last resolved
// round is older than the configured threshold. The store claim carries its
// own TTL; this sweep reclaims the session data underneath it.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActive.Range(func(key, val interface{}) bool {
				code, ok1 := key.(string)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.removeAbandonedSession(code)
					hs.lastActive.Delete(code)
				}
				return true
			})
		}
	}
}

// removeAbandonedSession deletes an idle session subtree from the store.
func (hs *HistorianService) removeAbandonedSession(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.sessions.Remove(ctx, "sessions/"+code); err != nil {
		log.Printf("failed to remove abandoned session %s: %v", code, err)
		return
	}
	log.Printf("Removed session %s due to inactivity.", code)
}

// insertRoundEventTx inserts a single resolved-round record.
func insertRoundEventTx(ctx context.Context, tx pgx.Tx, rec cache.RoundRecord) error {
	q := `
		INSERT INTO round_events (
			session_code, participant_id, verdict, path_len, target, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, q,
		rec.SessionCode, rec.ParticipantID, rec.Verdict, rec.PathLen, rec.Target,
		time.UnixMilli(rec.Timestamp),
	)
	return err
}

// Stop gracefully stops the historian service.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

func main() {
	hs := NewHistorianService()
	hs.Run()
}
