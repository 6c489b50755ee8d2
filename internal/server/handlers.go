package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bomcost/internal/report"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	token, p, err := s.sessions.Login(username, req.Password)
	if err != nil {
		s.log.Warn("login failed", zap.String("username", username))
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, Username: p.Username, ExpiresAt: p.ExpiresAt})
}

func (s *Server) ListFamilies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.reports.Families()})
}

func (s *Server) FamilyReport(c *gin.Context) {
	pred, err := parsePredicates(c.Request.URL.Query())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rep, err := s.reports.Family(c.Request.Context(), report.FamilyRequest{
		Family: c.Param("family"),
		Filter: pred,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) FamilyOptions(c *gin.Context) {
	opts, err := s.reports.OptionsFor(c.Request.Context(), c.Param("family"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opts})
}

func (s *Server) Lines(c *gin.Context) {
	q := c.Request.URL.Query()
	pred, err := parsePredicates(q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rep, err := s.reports.Lines(c.Request.Context(), report.LinesRequest{
		Filter:   pred,
		Families: nonEmpty(q[paramFamily]),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) PriceList(c *gin.Context) {
	entries, err := s.reports.PriceList(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// CheckDatasets reports the header check of every configured dataset. It
// answers 200 even when checks fail; the failures are in the payload.
func (s *Server) CheckDatasets(c *gin.Context) {
	checks, err := s.reports.CheckDatasets(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": checks})
}
