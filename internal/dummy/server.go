// Package dummy serves an in-memory CRUD target with the same routes the
// default request mix hits.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxItems = 1000

type ServerConfig struct {
	Port int

	// Jitter adds a random delay in [0, Jitter) to every response.
	Jitter time.Duration
	// FailRate is the fraction of item requests answered with 500.
	FailRate float64
}

type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type createRequest struct {
	Name string `json:"name" binding:"required"`
}

type store struct {
	mu    sync.RWMutex
	items []Item
}

func (s *store) add(name string) Item {
	item := Item{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	if len(s.items) > maxItems {
		s.items = s.items[len(s.items)-maxItems:]
	}
	return item
}

func (s *store) list() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func NewRouter(cfg ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Jitter > 0 {
		router.Use(func(c *gin.Context) {
			time.Sleep(time.Duration(rand.Int64N(int64(cfg.Jitter))))
			c.Next()
		})
	}

	s := &store{}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	items := router.Group("/api/items")
	items.Use(failures(cfg.FailRate))
	items.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.list())
	})
	items.POST("", func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, s.add(req.Name))
	})

	return router
}

func failures(rate float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rate > 0 && rand.Float64() < rate {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
			return
		}
		c.Next()
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, cfg ServerConfig, logger zerolog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: NewRouter(cfg),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("dummy target listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("dummy target shutting down")
	return server.Shutdown(shutdownCtx)
}
