// Package httpapi exposes the engine over HTTP. It is a thin delivery layer:
// request DTOs bind and convert to engine calls, engine errors map to status
// codes, and domain objects serialize as-is.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/astarworks/flextable/pkg/engine"
	"github.com/astarworks/flextable/pkg/types"
)

// Options configures the HTTP server.
type Options struct {
	// PageLimits bound record listing page sizes.
	PageLimits engine.PageLimits
	// RateRPS is the per-client request rate; zero disables rate limiting.
	RateRPS float64
	// RateBurst is the per-client burst allowance.
	RateBurst int
}

// Server routes HTTP requests to the schema and record stores.
type Server struct {
	schemas *engine.SchemaStore
	records *engine.RecordStore
	log     zerolog.Logger
	router  *gin.Engine
}

// NewServer builds a server over an attached backend.
func NewServer(backend types.Backend, log zerolog.Logger, opts Options) *Server {
	s := &Server{
		schemas: engine.NewSchemaStore(backend, log),
		records: engine.NewRecordStore(backend, log, opts.PageLimits),
		log:     log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	if opts.RateRPS > 0 {
		router.Use(rateLimit(opts.RateRPS, opts.RateBurst))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/tables", s.createTable)
		v1.GET("/tables", s.listTables)
		v1.GET("/tables/:tableID", s.getTable)
		v1.PATCH("/tables/:tableID", s.updateTable)
		v1.DELETE("/tables/:tableID", s.deleteTable)

		v1.POST("/tables/:tableID/properties", s.addProperty)
		v1.PATCH("/tables/:tableID/properties/:key", s.updateProperty)
		v1.DELETE("/tables/:tableID/properties/:key", s.removeProperty)
		v1.PUT("/tables/:tableID/property-order", s.reorderProperties)

		v1.GET("/tables/:tableID/records", s.listRecords)
		v1.POST("/tables/:tableID/records", s.createRecord)
		v1.GET("/records/:recordID", s.getRecord)
		v1.PATCH("/records/:recordID", s.updateRecord)
		v1.DELETE("/records/:recordID", s.deleteRecord)

		v1.POST("/batch/records/create", s.batchCreate)
		v1.POST("/batch/records/update", s.batchUpdate)
		v1.POST("/batch/records/delete", s.batchDelete)
	}
	router.GET("/healthz", s.health)

	s.router = router
	return s
}

// Router returns the configured gin engine, which is also an http.Handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
