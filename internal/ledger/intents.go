// internal/ledger/intents.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IntentKind names a money movement the coordinator wants the external
// ledger service to perform.
type IntentKind string

const (
	IntentChargeFee IntentKind = "charge_entry_fee"
	IntentRefund    IntentKind = "refund_entry_fee"
	IntentPayout    IntentKind = "payout_prize"
)

// Intent is one money-movement request. The coordinator never mutates
// balance itself; it enqueues intents and the ledger service is the single
// source of truth for funds.
type Intent struct {
	Kind         IntentKind `json:"kind"`
	PrincipalID  uuid.UUID  `json:"principal_id"`
	TournamentID uuid.UUID  `json:"tournament_id"`
	Amount       int64      `json:"amount"`
	Timestamp    int64      `json:"timestamp"`
}

// Sink accepts intents. The redis-backed IntentQueue is the production
// implementation; tests substitute an in-memory recorder.
type Sink interface {
	Emit(ctx context.Context, intent Intent) error
}

// DefaultIntentQueueName is the redis list drained by the ledger service.
const DefaultIntentQueueName = "arena_ledger_intents"

// IntentQueue pushes intents onto a redis list.
type IntentQueue struct {
	rdb   *redis.Client
	queue string
}

// ConnectIntentQueue dials redis using REDIS_ADDR / REDIS_DB and verifies
// the connection with a ping.
func ConnectIntentQueue() (*IntentQueue, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbIdx := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			dbIdx = v
		}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: dbIdx})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	queue := os.Getenv("LEDGER_INTENT_QUEUE")
	if queue == "" {
		queue = DefaultIntentQueueName
	}
	return &IntentQueue{rdb: rdb, queue: queue}, nil
}

// Emit serializes the intent to JSON and RPUSHes it onto the queue.
func (q *IntentQueue) Emit(ctx context.Context, intent Intent) error {
	if intent.Timestamp == 0 {
		intent.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue intent to %q: %w", q.queue, err)
	}
	return nil
}
