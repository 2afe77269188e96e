package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/models"
	"github.com/mindfull/backend/internal/repository"
)

var (
	ErrSessionFull        = errors.New("session has reached maximum participants")
	ErrUnauthorizedAccess = errors.New("unauthorized to perform this action")
	ErrAlreadyInSession   = errors.New("user is already in the session")
	ErrNotACounsellor     = errors.New("only counsellors can create sessions")
)

type SessionService interface {
	CreateSession(counsellorID uuid.UUID, topic, description string, scheduledAt *time.Time) (*models.Session, error)
	GetSessionByCode(code string) (*models.Session, error)
	GetSessionByID(id uuid.UUID) (*models.Session, error)
	GetCounsellorSessions(counsellorID uuid.UUID) ([]models.Session, error)
	JoinSession(userID, sessionID uuid.UUID, role models.ParticipantRole) (*models.Participant, error)
	LeaveSession(userID, sessionID uuid.UUID) error
	StartSession(sessionID, userID uuid.UUID) error
	EndSession(sessionID, userID uuid.UUID) error
	GetSessionParticipants(sessionID uuid.UUID) ([]models.Participant, error)
	UpdateParticipantMediaStatus(participantID uuid.UUID, isMuted, isVideoOn bool) error
}

type sessionService struct {
	sessionRepo     repository.SessionRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
) SessionService {
	return &sessionService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
	}
}

func (s *sessionService) CreateSession(
	counsellorID uuid.UUID,
	topic, description string,
	scheduledAt *time.Time,
) (*models.Session, error) {
	counsellor, err := s.userRepo.FindByID(counsellorID)
	if err != nil {
		return nil, err
	}
	if counsellor.Role != models.UserRoleCounsellor {
		return nil, ErrNotACounsellor
	}

	session := &models.Session{
		Topic:        topic,
		Description:  description,
		CounsellorID: counsellorID,
		Status:       models.SessionStatusScheduled,
		ScheduledAt:  scheduledAt,
		MaxUsers:     2,
	}

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	// Automatically add the counsellor as first participant
	participant := &models.Participant{
		SessionID: session.ID,
		UserID:    counsellorID,
		Role:      models.ParticipantRoleCounsellor,
		JoinedAt:  time.Now(),
	}

	if err := s.participantRepo.Create(participant); err != nil {
		return nil, err
	}

	// Reload session with counsellor info
	return s.sessionRepo.FindByID(session.ID)
}

func (s *sessionService) GetSessionByCode(code string) (*models.Session, error) {
	return s.sessionRepo.FindByCode(code)
}

func (s *sessionService) GetSessionByID(id uuid.UUID) (*models.Session, error) {
	return s.sessionRepo.FindByID(id)
}

func (s *sessionService) GetCounsellorSessions(counsellorID uuid.UUID) ([]models.Session, error) {
	return s.sessionRepo.FindByCounsellorID(counsellorID)
}

func (s *sessionService) JoinSession(
	userID, sessionID uuid.UUID,
	role models.ParticipantRole,
) (*models.Participant, error) {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.participantRepo.IsUserInSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInSession
	}

	// A counselling session is one-on-one: counsellor plus one student
	count, err := s.participantRepo.CountActiveSessionParticipants(sessionID)
	if err != nil {
		return nil, err
	}
	if count >= int64(session.MaxUsers) {
		return nil, ErrSessionFull
	}

	participant := &models.Participant{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}

	if err := s.participantRepo.Create(participant); err != nil {
		return nil, err
	}

	return s.participantRepo.FindByID(participant.ID)
}

func (s *sessionService) LeaveSession(userID, sessionID uuid.UUID) error {
	participant, err := s.participantRepo.FindByUserAndSession(userID, sessionID)
	if err != nil {
		return err
	}
	return s.participantRepo.MarkAsLeft(participant.ID)
}

func (s *sessionService) StartSession(sessionID, userID uuid.UUID) error {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return err
	}
	if session.CounsellorID != userID {
		return ErrUnauthorizedAccess
	}
	return s.sessionRepo.StartSession(sessionID)
}

func (s *sessionService) EndSession(sessionID, userID uuid.UUID) error {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return err
	}
	if session.CounsellorID != userID {
		return ErrUnauthorizedAccess
	}
	return s.sessionRepo.EndSession(sessionID)
}

func (s *sessionService) GetSessionParticipants(sessionID uuid.UUID) ([]models.Participant, error) {
	return s.participantRepo.FindBySessionID(sessionID)
}

func (s *sessionService) UpdateParticipantMediaStatus(participantID uuid.UUID, isMuted, isVideoOn bool) error {
	return s.participantRepo.UpdateMediaStatus(participantID, isMuted, isVideoOn)
}
