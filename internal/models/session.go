package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusEnded     SessionStatus = "ended"
)

// Session is a one-on-one counselling session between a counsellor and a
// student. The session code doubles as the signaling room identifier once
// the video call starts.
type Session struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Code         string         `gorm:"uniqueIndex;not null;size:10" json:"code"`
	Topic        string         `gorm:"not null" json:"topic"`
	Description  string         `gorm:"type:text" json:"description"`
	CounsellorID uuid.UUID      `gorm:"type:uuid;not null" json:"counsellor_id"`
	Status       SessionStatus  `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	StartedAt    *time.Time     `json:"started_at"`
	EndedAt      *time.Time     `json:"ended_at"`
	MaxUsers     int            `gorm:"default:2" json:"max_users"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Counsellor   User          `gorm:"foreignKey:CounsellorID" json:"counsellor,omitempty"`
	Participants []Participant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
}

// BeforeCreate hook to generate UUID and session code
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	// Generate unique session code with retry mechanism
	if s.Code == "" {
		const maxRetries = 10
		for i := 0; i < maxRetries; i++ {
			code := generateSessionCode()

			var count int64
			if err := tx.Model(&Session{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return err
			}

			if count == 0 {
				s.Code = code
				break
			}

			if i == maxRetries-1 {
				return gorm.ErrDuplicatedKey
			}
		}
	}

	return nil
}

// TableName specifies the table name for Session model
func (Session) TableName() string {
	return "sessions"
}

// generateSessionCode generates a cryptographically secure random 10-character session code
func generateSessionCode() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	const codeLength = 10

	code := make([]byte, codeLength)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := range code {
		randomIndex, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			// Fallback to timestamp-based (should rarely happen)
			code[i] = charset[time.Now().UnixNano()%int64(len(charset))]
		} else {
			code[i] = charset[randomIndex.Int64()]
		}
	}

	return string(code)
}

// SessionResponse represents the session data sent in API responses
type SessionResponse struct {
	ID           uuid.UUID     `json:"id"`
	Code         string        `json:"code"`
	Topic        string        `json:"topic"`
	Description  string        `json:"description"`
	CounsellorID uuid.UUID     `json:"counsellor_id"`
	Counsellor   UserResponse  `json:"counsellor"`
	Status       SessionStatus `json:"status"`
	ScheduledAt  *time.Time    `json:"scheduled_at"`
	StartedAt    *time.Time    `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at"`
	MaxUsers     int           `json:"max_users"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ToResponse converts Session model to SessionResponse
func (s *Session) ToResponse() SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		Code:         s.Code,
		Topic:        s.Topic,
		Description:  s.Description,
		CounsellorID: s.CounsellorID,
		Counsellor:   s.Counsellor.ToResponse(),
		Status:       s.Status,
		ScheduledAt:  s.ScheduledAt,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		MaxUsers:     s.MaxUsers,
		CreatedAt:    s.CreatedAt,
	}
}
