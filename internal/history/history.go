// Package history keeps an audit trail of how ready checks ended.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/ready-check/internal/events"
)

// Record is one finished lobby.
type Record struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	EventID      string    `gorm:"uniqueIndex;size:36" json:"event_id"`
	LobbyID      string    `gorm:"index;size:36" json:"lobby_id"`
	ChannelID    string    `gorm:"index" json:"channel_id"`
	Outcome      string    `gorm:"size:32" json:"outcome"`
	ActorID      string    `json:"actor_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Participants string    `json:"participants"`
	Epoch        int       `json:"epoch"`
	EndedAt      time.Time `json:"ended_at"`
}

func (Record) TableName() string { return "ready_check_outcomes" }

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres and migrates the outcome table.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return NewStore(db, log), nil
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Publish stores terminal lifecycle events; the rest are ignored.
func (s *Store) Publish(ctx context.Context, evt events.Event) error {
	rec, ok, err := RecordFromEvent(evt)
	if err != nil || !ok {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	s.log.Debug("recorded lobby outcome",
		zap.String("lobby_id", rec.LobbyID),
		zap.String("outcome", rec.Outcome))
	return nil
}

// Recent lists the latest outcomes for a channel, newest first.
func (s *Store) Recent(ctx context.Context, channelID string, limit int) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return recs, nil
}

func RecordFromEvent(evt events.Event) (Record, bool, error) {
	var outcome string
	switch evt.EventType {
	case events.TypeCompleted:
		outcome = "completed"
	case events.TypeCancelled:
		outcome = "cancelled"
	case events.TypeAbandoned:
		outcome = "abandoned"
	default:
		return Record{}, false, nil
	}

	p, err := evt.Lifecycle()
	if err != nil {
		return Record{}, false, fmt.Errorf("decode %s payload: %w", evt.EventType, err)
	}
	return Record{
		EventID:      evt.EventID,
		LobbyID:      evt.LobbyID,
		ChannelID:    evt.ChannelID,
		Outcome:      outcome,
		ActorID:      p.ActorID,
		Reason:       p.Reason,
		Participants: strings.Join(p.Participants, ","),
		Epoch:        p.Epoch,
		EndedAt:      evt.Timestamp,
	}, true, nil
}
