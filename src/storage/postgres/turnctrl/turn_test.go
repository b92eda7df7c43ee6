package turnctrl_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docqa/src/core/docqa"
	"docqa/src/storage/postgres/turnctrl"
)

func sampleRecord(sessionID string) docqa.TurnRecord {
	return docqa.TurnRecord{
		SessionID: sessionID,
		Document:  "paris.pdf",
		Question:  "What is the capital of France?",
		Answer:    "Paris is the capital of France.",
		Verdict:   docqa.VerdictExempt,
		Sources:   2,
		At:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewTurn(t *testing.T) {
	svc, err := turnctrl.NewTurnService(nil)
	require.NoError(t, err)

	a := svc.NewTurn(sampleRecord("s1"))
	b := svc.NewTurn(sampleRecord("s1"))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "s1", a.SessionID)
	assert.Equal(t, "exempt", a.Verdict)
	assert.Equal(t, 2, a.Sources)
	assert.Equal(t, "docqa_turns", turnctrl.Turn{}.TableName())
}

func TestRecordTurnPostgres(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_POSTGRES_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	svc, err := turnctrl.NewTurnService(db)
	require.NoError(t, err)
	require.NoError(t, svc.Migrate(ctx))
	require.NoError(t, svc.Ping(ctx))

	sessionID := uuid.NewString()
	t.Cleanup(func() { _ = svc.DeleteBySessionID(ctx, sessionID) })

	first := sampleRecord(sessionID)
	second := sampleRecord(sessionID)
	second.Question = "Where is Paris?"
	second.At = first.At.Add(time.Minute)

	require.NoError(t, svc.RecordTurn(ctx, first))
	require.NoError(t, svc.RecordTurn(ctx, second))

	turns, err := svc.GetBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, first.Question, turns[0].Question)
	assert.Equal(t, second.Question, turns[1].Question)
}
