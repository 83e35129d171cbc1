package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/httputil"
)

// KeyResponse describes a loaded key. It never carries key material.
type KeyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	Current    bool   `json:"current"`
	TimedOut   bool   `json:"timed_out"`
	LastAccess string `json:"last_access"`
}

// ListKeysResponse is a page of loaded keys.
type ListKeysResponse struct {
	Data  []KeyResponse `json:"data"`
	Total int           `json:"total"`
}

func (s *Server) mapKey(k *cryptoDomain.Key) KeyResponse {
	return KeyResponse{
		ID:         k.ID(),
		Name:       k.Name(),
		Path:       k.Path(),
		Current:    s.keys.IsCurrent(k),
		TimedOut:   k.IsTimedOut(),
		LastAccess: k.LastAccess().UTC().Format(time.RFC3339),
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if s.ready != nil && !s.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) listKeysHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, s.logger)
		return
	}

	all := s.keys.Keys()
	page := httputil.Page(all, offset, limit)

	data := make([]KeyResponse, 0, len(page))
	for _, k := range page {
		data = append(data, s.mapKey(k))
	}
	c.JSON(http.StatusOK, ListKeysResponse{Data: data, Total: len(all)})
}

func (s *Server) getKeyHandler(c *gin.Context) {
	key, err := s.keys.Get(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, s.logger)
		return
	}
	c.JSON(http.StatusOK, s.mapKey(key))
}
