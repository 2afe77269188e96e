package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrParticipantAlreadyExists = errors.New("participant already exists in session")
)

type ParticipantRepository interface {
	Create(participant *models.Participant) error
	FindByID(id uuid.UUID) (*models.Participant, error)
	FindBySessionID(sessionID uuid.UUID) ([]models.Participant, error)
	FindByUserAndSession(userID, sessionID uuid.UUID) (*models.Participant, error)
	FindActiveSessionParticipants(sessionID uuid.UUID) ([]models.Participant, error)
	Update(participant *models.Participant) error
	UpdateMediaStatus(id uuid.UUID, isMuted, isVideoOn bool) error
	MarkAsLeft(id uuid.UUID) error
	CountActiveSessionParticipants(sessionID uuid.UUID) (int64, error)
	IsUserInSession(userID, sessionID uuid.UUID) (bool, error)
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(participant *models.Participant) error {
	exists, err := r.IsUserInSession(participant.UserID, participant.SessionID)
	if err != nil {
		return err
	}
	if exists {
		return ErrParticipantAlreadyExists
	}

	return r.db.Create(participant).Error
}

func (r *participantRepository) FindByID(id uuid.UUID) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Preload("User").Preload("Session").
		Where("id = ?", id).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepository) FindBySessionID(sessionID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Preload("User").
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *participantRepository) FindByUserAndSession(userID, sessionID uuid.UUID) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Preload("User").Preload("Session").
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepository) FindActiveSessionParticipants(sessionID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Preload("User").
		Where("session_id = ? AND left_at IS NULL", sessionID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *participantRepository) Update(participant *models.Participant) error {
	return r.db.Save(participant).Error
}

func (r *participantRepository) UpdateMediaStatus(id uuid.UUID, isMuted, isVideoOn bool) error {
	return r.db.Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_muted":    isMuted,
			"is_video_on": isVideoOn,
		}).Error
}

func (r *participantRepository) MarkAsLeft(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Participant{}).
		Where("id = ?", id).
		Update("left_at", now).Error
}

func (r *participantRepository) CountActiveSessionParticipants(sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("session_id = ? AND left_at IS NULL", sessionID).
		Count(&count).Error
	return count, err
}

func (r *participantRepository) IsUserInSession(userID, sessionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("user_id = ? AND session_id = ? AND left_at IS NULL", userID, sessionID).
		Count(&count).Error
	return count > 0, err
}
