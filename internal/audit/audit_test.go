package audit

import (
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestLogger_RecordEntityChange(t *testing.T) {
	t.Run("event pushed onto the audit queue", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		logger := NewLogger(redisClient)

		actorID := 1
		mock.Regexp().ExpectRPush(QueueKey, ".*").SetVal(1)

		logger.RecordEntityChange("create", "ledger_transaction", 10, "TRX-abc1234567", &actorID, map[string]any{
			"amount": 1000.0,
		})

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("queue failure is swallowed", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		logger := NewLogger(redisClient)

		mock.Regexp().ExpectRPush(QueueKey, ".*").SetErr(assert.AnError)

		// Must not panic or surface the error
		logger.RecordEntityChange("update", "ledger_transaction", 11, "", nil, nil)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil redis client tolerated", func(t *testing.T) {
		logger := NewLogger(nil)

		assert.NotPanics(t, func() {
			logger.RecordEntityChange("reconcile", "ledger_account", 3, "", nil, nil)
		})
	})
}
