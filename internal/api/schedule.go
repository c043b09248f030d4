package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"psy-booking-bot/internal/apperrors"
)

func (s *Server) getTemplate(c *gin.Context) {
	tpl, err := s.Schedule.Get(c.Request.Context())
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// saveTemplate snapshots the current week's slots as the template.
func (s *Server) saveTemplate(c *gin.Context) {
	tpl, err := s.Schedule.Save(c.Request.Context())
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "template": tpl})
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if err := s.Schedule.Delete(c.Request.Context()); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

type applyRequest struct {
	Weeks int `json:"weeks"`
}

func (s *Server) applyTemplate(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Weeks == 0 {
		req.Weeks = 1
	}
	created, err := s.Schedule.Apply(c.Request.Context(), req.Weeks)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": created})
}
