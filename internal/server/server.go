// Package server exposes the assistant over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"campus-assistant/internal/models"
	"campus-assistant/internal/questionlog"
	"campus-assistant/internal/rag"
	"campus-assistant/internal/render"
)

// Asker answers a single question.
type Asker interface {
	Query(ctx context.Context, question string) (*models.PromptResponse, error)
}

// Syncer rebuilds the knowledge base.
type Syncer interface {
	Sync(ctx context.Context, dryRun bool) (*rag.SyncReport, error)
}

type Server struct {
	asker       Asker
	syncer      Syncer
	questions   *questionlog.Client
	emailDomain string
	engine      *gin.Engine
}

// New builds the router. syncer may be nil, which disables /api/sync.
func New(asker Asker, syncer Syncer, questions *questionlog.Client, emailDomain string) *Server {
	s := &Server{
		asker:       asker,
		syncer:      syncer,
		questions:   questions,
		emailDomain: strings.ToLower(emailDomain),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	{
		api.POST("/ask", s.Ask)
		if syncer != nil {
			api.POST("/sync", s.Sync)
		}
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	log.Info().Str("addr", addr).Msg("Starting server")
	return s.engine.Run(addr)
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Question string `json:"question"`
}

type AskResponse struct {
	Answer     string          `json:"answer"`
	AnswerHTML string          `json:"answer_html"`
	State      models.State    `json:"state"`
	Strategy   models.Strategy `json:"strategy"`
	Sources    []string        `json:"sources,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// Ask handles POST /api/ask
func (s *Server) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Email != "" && s.emailDomain != "" && !strings.HasSuffix(strings.ToLower(req.Email), s.emailDomain) {
		errorJSON(c, http.StatusBadRequest, "INVALID_EMAIL", "Email must end with "+s.emailDomain)
		return
	}

	resp, err := s.asker.Query(c.Request.Context(), req.Question)
	if errors.Is(err, models.ErrValidation) {
		errorJSON(c, http.StatusBadRequest, "INVALID_QUESTION", resp.Content)
		return
	}

	answerHTML, rerr := render.HTML(resp.Content)
	if rerr != nil {
		log.Warn().Err(rerr).Msg("Could not render answer")
		answerHTML = ""
	}
	data := AskResponse{
		Answer:     resp.Content,
		AnswerHTML: answerHTML,
		State:      resp.State,
		Strategy:   resp.Strategy,
		Sources:    resp.Sources,
		DurationMS: resp.Duration.Milliseconds(),
	}

	s.questions.Log(c.Request.Context(), questionlog.Record{
		Email:    req.Email,
		Question: req.Question,
		Answer:   resp.Content,
		Duration: resp.Duration.Seconds(),
	})

	if err != nil {
		log.Error().Err(err).Str("question", req.Question).Msg("Question failed")
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"data":    data,
			"error": gin.H{
				"code":    failureCode(err),
				"message": resp.Content,
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Sync handles POST /api/sync
func (s *Server) Sync(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"
	report, err := s.syncer.Sync(c.Request.Context(), dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"data":    report,
			"error": gin.H{
				"code":    "SYNC_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, models.ErrStoreNotInitialized):
		return "NOT_INITIALIZED"
	case errors.Is(err, models.ErrIngestionEmpty):
		return "NO_DATA"
	default:
		return "ANSWER_FAILED"
	}
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("Request")
	}
}
