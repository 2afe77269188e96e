package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/api/middleware"
	"github.com/mindfull/backend/internal/models"
	"github.com/mindfull/backend/internal/repository"
	"github.com/mindfull/backend/internal/service"
	"github.com/mindfull/backend/internal/sse"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

type CreateSessionRequest struct {
	Topic       string     `json:"topic" binding:"required"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type JoinSessionRequest struct {
	Code string `json:"code" binding:"required"`
}

type UpdateMediaStatusRequest struct {
	IsMuted   bool `json:"is_muted"`
	IsVideoOn bool `json:"is_video_on"`
}

// CreateSession books a counselling session; the returned code is the
// signaling room identifier handed to the video client
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.CreateSession(userID, req.Topic, req.Description, req.ScheduledAt)
	if err != nil {
		if err == service.ErrNotACounsellor {
			middleware.RespondWithError(c, http.StatusForbidden, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	c.JSON(http.StatusCreated, session.ToResponse())
}

// GetSessionByCode returns session details by its code
func (h *SessionHandler) GetSessionByCode(c *gin.Context) {
	code := c.Param("code")

	session, err := h.sessionService.GetSessionByCode(code)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Session not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get session")
		return
	}

	c.JSON(http.StatusOK, session.ToResponse())
}

// GetMySessions lists sessions counselled by the current user
func (h *SessionHandler) GetMySessions(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessions, err := h.sessionService.GetCounsellorSessions(userID)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get sessions")
		return
	}

	responses := make([]models.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, s.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}

// JoinSession joins a session by code
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	role, _ := middleware.GetRoleFromContext(c)

	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.GetSessionByCode(req.Code)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Session not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get session")
		return
	}

	participantRole := models.ParticipantRoleStudent
	if role == string(models.UserRoleCounsellor) {
		participantRole = models.ParticipantRoleCounsellor
	}

	participant, err := h.sessionService.JoinSession(userID, session.ID, participantRole)
	if err != nil {
		switch err {
		case service.ErrAlreadyInSession:
			middleware.RespondWithError(c, http.StatusConflict, err.Error())
		case service.ErrSessionFull:
			middleware.RespondWithError(c, http.StatusConflict, err.Error())
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to join session")
		}
		return
	}

	sse.GetHub().BroadcastToSession(session.ID, sse.Event{
		Type: sse.EventParticipantJoined,
		Data: participant.ToResponse(),
	})

	c.JSON(http.StatusOK, participant.ToResponse())
}

// LeaveSession marks the current user as having left a session
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	if err := h.sessionService.LeaveSession(userID, sessionID); err != nil {
		if err == repository.ErrParticipantNotFound {
			middleware.RespondWithError(c, http.StatusNotFound, "Not a participant of this session")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to leave session")
		return
	}

	sse.GetHub().BroadcastToSession(sessionID, sse.Event{
		Type: sse.EventParticipantLeft,
		Data: gin.H{"user_id": userID},
	})

	middleware.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Left session"})
}

// StartSession moves a session to active; counsellor only
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	if err := h.sessionService.StartSession(sessionID, userID); err != nil {
		if err == service.ErrUnauthorizedAccess {
			middleware.RespondWithError(c, http.StatusForbidden, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	sse.GetHub().BroadcastToSession(sessionID, sse.Event{
		Type: sse.EventSessionStarted,
		Data: gin.H{"session_id": sessionID},
	})

	middleware.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Session started"})
}

// EndSession moves a session to ended; counsellor only
func (h *SessionHandler) EndSession(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	if err := h.sessionService.EndSession(sessionID, userID); err != nil {
		if err == service.ErrUnauthorizedAccess {
			middleware.RespondWithError(c, http.StatusForbidden, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to end session")
		return
	}

	sse.GetHub().BroadcastToSession(sessionID, sse.Event{
		Type: sse.EventSessionEnded,
		Data: gin.H{"session_id": sessionID},
	})

	middleware.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Session ended"})
}

// GetSessionParticipants lists a session's participants
func (h *SessionHandler) GetSessionParticipants(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	participants, err := h.sessionService.GetSessionParticipants(sessionID)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get participants")
		return
	}

	responses := make([]models.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		responses = append(responses, p.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateMediaStatus records a participant's mute/camera flags. This mirrors
// the local-only track toggles in the call client; it is informational and
// triggers no renegotiation.
func (h *SessionHandler) UpdateMediaStatus(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req UpdateMediaStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	participants, err := h.sessionService.GetSessionParticipants(sessionID)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get participants")
		return
	}

	for _, p := range participants {
		if p.UserID == userID {
			if err := h.sessionService.UpdateParticipantMediaStatus(p.ID, req.IsMuted, req.IsVideoOn); err != nil {
				middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update media status")
				return
			}

			sse.GetHub().BroadcastToSession(sessionID, sse.Event{
				Type: sse.EventParticipantUpdated,
				Data: gin.H{"user_id": userID, "is_muted": req.IsMuted, "is_video_on": req.IsVideoOn},
			})

			middleware.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Media status updated"})
			return
		}
	}

	middleware.RespondWithError(c, http.StatusNotFound, "Not a participant of this session")
}
