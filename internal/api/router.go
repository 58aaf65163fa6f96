package api

import (
	"net/http"
	"time"

	"microearn/internal/middleware"
	"microearn/internal/service"
	"microearn/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Ledger        *service.LedgerService
	Auth          service.AuthServiceI
	Quiz          service.QuizServiceI
	Tasks         service.TaskServiceI
	Events        *service.EventHub
	Tokens        *auth.TokenAuth
	Limiter       *middleware.RateLimiter
	MinWithdrawal int64
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var limiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limiter = d.Limiter.Middleware()
	}

	authz := middleware.NewAuthorization(d.Ledger)

	a := router.Group("/api/v1")
	NewAuthRoutes(a, d.Auth, d.Tokens, authz, limiter)
	NewWalletRoutes(a, d.Ledger, d.Tokens, authz, d.MinWithdrawal)
	NewTaskRoutes(a, d.Ledger, d.Tasks, d.Tokens, authz)
	NewQuizRoutes(a, d.Quiz, d.Tokens, authz)
	NewAdminRoutes(a, d.Ledger, d.Tokens, authz)
	NewEventRoutes(a, d.Events, d.Tokens)

	return router
}
