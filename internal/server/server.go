// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the HTTP shell around the orchestrator and the active
// session: a JSON API, a websocket stream of signal-bus events, and the
// Prometheus scrape endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/patent-chooser/internal/basket"
	"github.com/pdiddy/patent-chooser/internal/logging"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/session"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// Searcher runs searches and exposes the current result state.
type Searcher interface {
	PerformSearch(ctx context.Context, req search.Request) error
	PerformNumberlistSearch(ctx context.Context, raw, rng string) error
	State() search.State
}

// Sessions manages the active project.
type Sessions interface {
	ActivateProject(ctx context.Context, name string, opts session.ActivateOptions) error
	Project() string
	Basket() (*basket.Basket, error)
	Rate(ctx context.Context, number string, score *int, dismiss *bool) (types.BasketEntry, error)
	MarkSeen(ctx context.Context, number string) error
}

// Deps are the collaborators of the HTTP shell.
type Deps struct {
	Search   Searcher
	Sessions Sessions
	Bus      *signal.Bus
	Gatherer prometheus.Gatherer

	// ViewerURL is the address share links point to.
	ViewerURL string
}

// Server routes HTTP requests.
type Server struct {
	search    Searcher
	sessions  Sessions
	hub       *Hub
	gatherer  prometheus.Gatherer
	viewerURL string
	logger    *slog.Logger
	detach    func()
}

// New builds the server and attaches the websocket hub to the bus.
func New(d Deps) *Server {
	logger := logging.WithComponent("server")
	s := &Server{
		search:    d.Search,
		sessions:  d.Sessions,
		hub:       NewHub(logger),
		gatherer:  d.Gatherer,
		viewerURL: d.ViewerURL,
		logger:    logger,
		detach:    func() {},
	}
	if d.Bus != nil {
		s.detach = s.hub.Attach(d.Bus)
	}
	return s
}

// Close detaches the websocket hub from the bus.
func (s *Server) Close() { s.detach() }

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.POST("/search", s.performSearch)
	api.POST("/numberlist", s.numberlistSearch)
	api.GET("/results", s.results)
	api.POST("/projects/:name/activate", s.activateProject)

	b := api.Group("/basket")
	b.GET("", s.basketList)
	b.POST("", s.basketAdd)
	b.POST("/bulk", s.basketAddMulti)
	b.POST("/review", s.basketReview)
	b.GET("/export", s.basketExport)
	b.GET("/share", s.basketShare)
	b.DELETE("/:number", s.basketRemove)
	b.POST("/:number/rate", s.basketRate)
	b.POST("/:number/seen", s.basketSeen)

	r.GET("/ws", s.hub.Handler())
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": s.hub.Count()})
	})
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(began))
	}
}

// --- search ---

type searchBody struct {
	Query      string `json:"query"`
	Datasource string `json:"datasource"`
	Range      string `json:"range"`
	Flavor     string `json:"flavor"`
	Keywords   string `json:"keywords"`
	ReviewMode *bool  `json:"reviewmode"`
}

func (s *Server) performSearch(c *gin.Context) {
	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	err := s.search.PerformSearch(c.Request.Context(), search.Request{
		Query:      body.Query,
		Datasource: body.Datasource,
		Range:      body.Range,
		Flavor:     body.Flavor,
		Keywords:   body.Keywords,
		ReviewMode: body.ReviewMode,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.search.State())
}

type numberlistBody struct {
	Numberlist string `json:"numberlist"`
	Range      string `json:"range"`
}

func (s *Server) numberlistSearch(c *gin.Context) {
	var body numberlistBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := s.search.PerformNumberlistSearch(c.Request.Context(), body.Numberlist, body.Range); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.search.State())
}

func (s *Server) results(c *gin.Context) {
	c.JSON(http.StatusOK, s.search.State())
}

// --- projects ---

func (s *Server) activateProject(c *gin.Context) {
	var opts session.ActivateOptions
	if c.Request.ContentLength > 0 {
		var body struct {
			Datasource string `json:"datasource"`
			Numberlist string `json:"numberlist"`
			Range      string `json:"range"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		opts = session.ActivateOptions{Datasource: body.Datasource, Numberlist: body.Numberlist, Range: body.Range}
	}
	if err := s.sessions.ActivateProject(c.Request.Context(), c.Param("name"), opts); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": s.sessions.Project()})
}

// --- basket ---

func (s *Server) activeBasket(c *gin.Context) (*basket.Basket, bool) {
	b, err := s.sessions.Basket()
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return b, true
}

func (s *Server) basketList(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project": b.Project(),
		"entries": b.Entries(),
		"numbers": b.GetNumbers(c.Query("honor_dismiss") == "true"),
	})
}

func (s *Server) basketAdd(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	var body struct {
		Number string `json:"number"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Number) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number required"})
		return
	}
	e, err := b.Add(c.Request.Context(), body.Number, false)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) basketAddMulti(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	var body struct {
		Numbers []string `json:"numbers"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := b.AddMulti(c.Request.Context(), body.Numbers); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": b.GetNumbers(false)})
}

func (s *Server) basketRemove(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	if err := b.Remove(c.Request.Context(), c.Param("number")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) basketRate(c *gin.Context) {
	var body struct {
		Score   *int  `json:"score"`
		Dismiss *bool `json:"dismiss"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	e, err := s.sessions.Rate(c.Request.Context(), c.Param("number"), body.Score, body.Dismiss)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) basketSeen(c *gin.Context) {
	if err := s.sessions.MarkSeen(c.Request.Context(), c.Param("number")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) basketReview(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	var body struct {
		Range string `json:"range"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	if err := b.Review(c.Request.Context(), body.Range); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.search.State())
}

func (s *Server) basketExport(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		c.String(http.StatusOK, strings.Join(b.CSVList(), "\n")+"\n")
	case "stars":
		c.String(http.StatusOK, strings.Join(b.UnicodeStarsList(), "\n")+"\n")
	case "yaml":
		c.Header("Content-Type", "application/yaml")
		c.Status(http.StatusOK)
		if err := b.ExportYAML(c.Writer); err != nil {
			s.logger.Error("basket export failed", "error", err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, stars, or yaml"})
	}
}

func (s *Server) basketShare(c *gin.Context) {
	b, ok := s.activeBasket(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b.ShareEmailParams(s.viewerURL, time.Now()))
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrBasketInactive), errors.Is(err, search.ErrReviewUnavailable):
		status = http.StatusConflict
	case errors.Is(err, search.ErrUnknownDatasource),
		errors.Is(err, search.ErrEmptyNumberlist),
		errors.Is(err, basket.ErrInvalidScore):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
