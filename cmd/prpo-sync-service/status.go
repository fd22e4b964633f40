package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxRunsLimit = 200

type statusStore interface {
	RecentProcessLogs(ctx context.Context, limit int) ([]models.FileProcessLog, error)
	ListSummaries(ctx context.Context) ([]models.EquipmentSummary, error)
}

// newStatusRouter serves the read-only status endpoints. Everything except
// /healthz answers 503 until both databases are connected.
func newStatusRouter(store statusStore) *gin.Engine {
	return newStatusRouterWithReadiness(store, func() bool {
		return config.GetDB() != nil && config.GetStagingDB() != nil
	})
}

func newStatusRouterWithReadiness(store statusStore, ready func() bool) *gin.Engine {
	logger := config.GetLogger()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !ready() {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	if origins := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	r.Use(cors.New(corsConfig))
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	})
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/prpo/runs", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if limit > maxRunsLimit {
			limit = maxRunsLimit
		}
		logs, err := store.RecentProcessLogs(c.Request.Context(), limit)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load process logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": logs})
	})
	r.GET("/api/prpo/summaries", func(c *gin.Context) {
		summaries, err := store.ListSummaries(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load summaries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries": summaries})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
