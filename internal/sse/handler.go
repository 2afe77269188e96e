package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mindfull/backend/internal/api/middleware"
)

// Handler handles SSE connections
type Handler struct {
	hub *Hub
}

// NewHandler creates a new SSE handler
func NewHandler() *Handler {
	return &Handler{
		hub: GetHub(),
	}
}

// Stream handles SSE connection for a session
func (h *Handler) Stream(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sessionIDStr := c.Param("id")
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	// Set headers for SSE
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &Client{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
	}

	h.hub.Register(client)

	c.Writer.WriteHeader(http.StatusOK)

	// Send initial connection event
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"message\": \"Connected to session events\"}\n\n")
	c.Writer.Flush()

	notify := c.Request.Context().Done()

	defer h.hub.Unregister(client)

	for {
		select {
		case message, ok := <-client.Send:
			if !ok {
				return
			}
			// Parse the event to get the type for the SSE event name
			var event Event
			if err := json.Unmarshal(message, &event); err == nil {
				fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, string(message))
			} else {
				fmt.Fprintf(c.Writer, "data: %s\n\n", message)
			}
			c.Writer.Flush()
		case <-notify:
			return
		}
	}
}
