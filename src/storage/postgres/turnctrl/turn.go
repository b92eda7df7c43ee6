package turnctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"docqa/src/core/docqa"
)

// Turn is one committed question/answer exchange.
type Turn struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"not null;index" json:"session_id"`
	Document  string    `gorm:"not null" json:"document"`
	Question  string    `gorm:"not null" json:"question"`
	Answer    string    `gorm:"not null" json:"answer"`
	Corrected bool      `gorm:"not null;default:false" json:"corrected"`
	Verdict   string    `gorm:"not null;size:32" json:"verdict"`
	Sources   int       `gorm:"not null;default:0" json:"sources"`
	AskedAt   time.Time `gorm:"not null" json:"asked_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Turn) TableName() string {
	return "docqa_turns"
}

type TurnService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewTurnService(db *gorm.DB) (*TurnService, error) {
	node, err := snowflake.NewNode(3)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &TurnService{
		db:        db,
		snowflake: node,
	}, nil
}

// Migrate creates or updates the turns table.
func (s *TurnService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Turn{}); err != nil {
		return fmt.Errorf("failed to migrate turns: %w", err)
	}
	return nil
}

// NewTurn converts a turn record into a row with a fresh ID.
func (s *TurnService) NewTurn(rec docqa.TurnRecord) *Turn {
	return &Turn{
		ID:        s.snowflake.Generate().Int64(),
		SessionID: rec.SessionID,
		Document:  rec.Document,
		Question:  rec.Question,
		Answer:    rec.Answer,
		Corrected: rec.Corrected,
		Verdict:   string(rec.Verdict),
		Sources:   rec.Sources,
		AskedAt:   rec.At,
	}
}

// RecordTurn implements docqa.TurnRecorder.
func (s *TurnService) RecordTurn(ctx context.Context, rec docqa.TurnRecord) error {
	result := s.db.WithContext(ctx).Create(s.NewTurn(rec))
	if result.Error != nil {
		return fmt.Errorf("failed to record turn: %w", result.Error)
	}
	return nil
}

func (s *TurnService) GetBySessionID(ctx context.Context, sessionID string) ([]Turn, error) {
	var turns []Turn
	result := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("asked_at ASC, id ASC").
		Find(&turns)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get turns: %w", result.Error)
	}
	return turns, nil
}

func (s *TurnService) DeleteBySessionID(ctx context.Context, sessionID string) error {
	result := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Turn{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete turns: %w", result.Error)
	}
	return nil
}

// Ping checks the database connection.
func (s *TurnService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
