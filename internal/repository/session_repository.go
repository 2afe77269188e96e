package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCodeExists = errors.New("session code already exists")
)

type SessionRepository interface {
	Create(session *models.Session) error
	FindByID(id uuid.UUID) (*models.Session, error)
	FindByCode(code string) (*models.Session, error)
	FindByCounsellorID(counsellorID uuid.UUID) ([]models.Session, error)
	FindActiveSessions() ([]models.Session, error)
	Update(session *models.Session) error
	Delete(id uuid.UUID) error
	StartSession(id uuid.UUID) error
	EndSession(id uuid.UUID) error
	ExistsByCode(code string) (bool, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.Session) error {
	exists, err := r.ExistsByCode(session.Code)
	if err != nil {
		return err
	}
	if exists {
		return ErrSessionCodeExists
	}

	return r.db.Create(session).Error
}

func (r *sessionRepository) FindByID(id uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.db.Preload("Counsellor").Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByCode(code string) (*models.Session, error) {
	var session models.Session
	err := r.db.Preload("Counsellor").Where("code = ?", code).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByCounsellorID(counsellorID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.Preload("Counsellor").
		Where("counsellor_id = ?", counsellorID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) FindActiveSessions() ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.Preload("Counsellor").
		Where("status = ?", models.SessionStatusActive).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) Update(session *models.Session) error {
	return r.db.Save(session).Error
}

func (r *sessionRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Session{}, id).Error
}

func (r *sessionRepository) StartSession(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.SessionStatusActive,
			"started_at": now,
		}).Error
}

func (r *sessionRepository) EndSession(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.SessionStatusEnded,
			"ended_at": now,
		}).Error
}

func (r *sessionRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Session{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}
