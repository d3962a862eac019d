package api

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) getMessages(c *gin.Context) {
	user := currentUser(c)
	counterpart := domain.UserID(c.Param("id"))

	messages, err := s.chat.GetMessages(c.Request.Context(), user.ID, counterpart)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) sendMessage(c *gin.Context) {
	user := currentUser(c)
	recipient := domain.UserID(c.Param("id"))

	var draft domain.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}
	message, err := s.chat.SendMessage(c.Request.Context(), user.ID, recipient, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (s *Server) online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": s.chat.Online()})
}

// fail writes the error as JSON. Internal details never leave the server.
func (s *Server) fail(c *gin.Context, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
