// Package server exposes the report engine over HTTP with gin. Report
// routes sit behind bearer-token sessions; /healthz and /metrics do not.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bomcost/internal/report"
	"bomcost/internal/session"
)

// Server holds the HTTP dependencies.
type Server struct {
	reports  *report.Engine
	sessions *session.Manager
	log      *zap.Logger
	metrics  http.Handler
	engine   *gin.Engine
}

// Params configures New. Metrics may be nil, in which case /metrics is not
// mounted.
type Params struct {
	Reports  *report.Engine
	Sessions *session.Manager
	Logger   *zap.Logger
	Metrics  http.Handler
}

// New builds the server and registers its routes.
func New(p Params) *Server {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		reports:  p.Reports,
		sessions: p.Sessions,
		log:      log,
		metrics:  p.Metrics,
	}
	s.engine = s.newEngine()
	return s
}

// Engine returns the gin engine, an http.Handler.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(s.log))
	r.Use(AccessLog(s.log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	api.POST("/login", s.Login)

	authed := api.Group("", s.AuthRequired())
	authed.GET("/families", s.ListFamilies)
	authed.GET("/families/:family/report", s.FamilyReport)
	authed.GET("/families/:family/options", s.FamilyOptions)
	authed.GET("/lines", s.Lines)
	authed.GET("/price-list", s.PriceList)
	authed.GET("/datasets/check", s.CheckDatasets)

	return r
}
