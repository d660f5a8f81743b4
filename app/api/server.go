package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Info("API authentication disabled (API_ACCESS_KEY not set)")
	}
	{
		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.DELETE("/sessions/:id", handler.DeleteSession)
		api.POST("/sessions/:id/discover", handler.Discover)
		api.POST("/sessions/:id/bans", handler.AddBan)
		api.DELETE("/sessions/:id/bans", handler.RemoveBans)
		api.DELETE("/sessions/:id/seen", handler.ClearSeen)
		api.POST("/catalog/refresh", handler.RefreshCatalog)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Veni Vici",
			"description": "Random artwork discovery from the Harvard Art Museums collection",
			"endpoints": map[string]string{
				"health":   "/health",
				"sessions": "/api/sessions (POST)",
				"session":  "/api/sessions/<id>",
				"discover": "/api/sessions/<id>/discover (POST)",
				"bans":     "/api/sessions/<id>/bans (POST, DELETE)",
				"seen":     "/api/sessions/<id>/seen (DELETE)",
				"refresh":  "/api/catalog/refresh (POST)",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
