package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// QueueKey is the Redis list downstream audit consumers drain
const QueueKey = "ledger_audit_queue"

type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"` // create, update, reconcile
	EntityType string    `json:"entity_type"`
	EntityID   int       `json:"entity_id"`
	Reference  string    `json:"reference,omitempty"`
	ActorID    *int      `json:"actor_id,omitempty"`
	Details    any       `json:"details,omitempty"`
}

// Logger records entity changes for the audit trail. Events are written to the
// local log and pushed onto a Redis queue for the downstream audit consumer.
// Every failure is swallowed: auditing must never fail or roll back the
// financial operation that triggered it.
type Logger struct {
	redis *redis.Client
}

func NewLogger(rdb *redis.Client) *Logger {
	return &Logger{redis: rdb}
}

// RecordEntityChange emits one audit event, fire-and-forget
func (a *Logger) RecordEntityChange(action, entityType string, entityID int, reference string, actorID *int, details any) {
	event := Event{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Reference:  reference,
		ActorID:    actorID,
		Details:    details,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[AUDIT] Failed to marshal event: %v", err)
		return
	}

	log.Printf("AUDIT: %s", string(data))

	if a.redis == nil {
		return
	}
	if err := a.redis.RPush(context.Background(), QueueKey, data).Err(); err != nil {
		log.Printf("[AUDIT] Failed to queue event %s: %v", event.ID, err)
	}
}
