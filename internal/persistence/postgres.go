package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/parleyhq/parley/internal/domain"
)

type participantRecord struct {
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type roomRecord struct {
	ID              uint                `gorm:"primarykey"`
	RoomID          string              `gorm:"uniqueIndex"`
	CreatedBy       string
	Status          string              `gorm:"index"`
	MaxParticipants int
	Participants    []participantRecord `gorm:"serializer:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type callRecord struct {
	ID              uint                `gorm:"primarykey"`
	RoomID          string              `gorm:"uniqueIndex"`
	Participants    []string            `gorm:"serializer:json;type:jsonb"`
	Status          string              `gorm:"index"`
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds int
	AudioURL        string
	VideoURL        string
	Transcript      string
	Summary         *domain.CallSummary `gorm:"serializer:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r callRecord) toDomain() domain.Call {
	return domain.Call{
		RoomID: domain.RoomID(r.RoomID),
		Participants: lo.Map(r.Participants, func(u string, _ int) domain.UserID {
			return domain.UserID(u)
		}),
		Status:     domain.CallStatus(r.Status),
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		Duration:   time.Duration(r.DurationSeconds) * time.Second,
		AudioURL:   r.AudioURL,
		VideoURL:   r.VideoURL,
		Transcript: r.Transcript,
		Summary:    r.Summary,
	}
}

// PostgresStore implements Store on gorm over postgres.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&roomRecord{}, &callRecord{}); err != nil {
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateRoom(ctx context.Context, room domain.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing roomRecord
		err := tx.Where("room_id = ?", string(room.ID)).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		participants := lo.Map(room.Participants, func(p domain.Participant, _ int) participantRecord {
			return participantRecord{UserID: string(p.UserID), JoinedAt: p.JoinedAt}
		})
		if err := tx.Create(&roomRecord{
			RoomID:          string(room.ID),
			CreatedBy:       string(room.CreatedBy),
			Status:          string(room.Status),
			MaxParticipants: room.MaxParticipants,
			Participants:    participants,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&callRecord{
			RoomID: string(room.ID),
			Participants: lo.Map(room.Participants, func(p domain.Participant, _ int) string {
				return string(p.UserID)
			}),
			Status:    string(domain.CallActive),
			StartedAt: room.CreatedAt,
		}).Error
	})
}

func (s *PostgresStore) FinalizeRoom(ctx context.Context, roomID domain.RoomID) error {
	tx := s.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("room_id = ?", string(roomID)).
		Update("status", string(domain.RoomEnded))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertCallParticipants(ctx context.Context, roomID domain.RoomID, participants []domain.UserID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var call callRecord
		if err := tx.Where("room_id = ?", string(roomID)).First(&call).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCallNotFound
			}
			return err
		}
		merged := lo.Union(call.Participants, lo.Map(participants, func(u domain.UserID, _ int) string {
			return string(u)
		}))
		return tx.Model(&call).Update("participants", merged).Error
	})
}

func (s *PostgresStore) MarkCallEnded(ctx context.Context, roomID domain.RoomID, endedAt time.Time, duration time.Duration) error {
	tx := s.db.WithContext(ctx).
		Model(&callRecord{}).
		Where("room_id = ?", string(roomID)).
		Updates(map[string]any{
			"status":           string(domain.CallEnded),
			"ended_at":         endedAt,
			"duration_seconds": int(duration.Seconds()),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrCallNotFound
	}
	return nil
}

func (s *PostgresStore) GetCall(ctx context.Context, roomID domain.RoomID) (domain.Call, error) {
	var call callRecord
	if err := s.db.WithContext(ctx).Where("room_id = ?", string(roomID)).First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Call{}, ErrCallNotFound
		}
		return domain.Call{}, err
	}
	return call.toDomain(), nil
}

func (s *PostgresStore) ListEndedCalls(ctx context.Context, userID domain.UserID, page, limit int) ([]domain.Call, int64, error) {
	member, err := jsoniter.Marshal([]string{string(userID)})
	if err != nil {
		return nil, 0, err
	}
	query := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&callRecord{}).
			Where("status = ?", string(domain.CallEnded)).
			Where("participants @> ?", string(member))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []callRecord
	if err := query().
		Order("ended_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return lo.Map(records, func(r callRecord, _ int) domain.Call { return r.toDomain() }), total, nil
}
