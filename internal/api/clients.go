package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) listClients(c *gin.Context) {
	list, err := s.Repo.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

type clientNameRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *Server) updateClient(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req clientNameRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := s.Repo.UpdateClientName(c.Request.Context(), id, trimOrNil(req.FirstName), trimOrNil(req.LastName)); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

// deleteClient removes the client with their history; booked slots become
// free again.
func (s *Server) deleteClient(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	canceled, err := s.Repo.DeleteClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	log.Info().Int64("client_id", id).Int("canceled_bookings", len(canceled)).Msg("client deleted")
	ok(c)
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
