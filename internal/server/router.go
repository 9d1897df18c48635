// Package server assembles the gin engine: global middleware, the /api/v1
// route table and the operational endpoints.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"freedash/internal/auth"
	"freedash/internal/handlers"
	"freedash/internal/middleware"

	_ "freedash/internal/docs" // Import swagger docs
)

// Permissions checked on the banking routes.
const (
	PermWriteAccounts    = "write:accounts"
	PermReadTransactions = "read:transactions"
)

// Handlers groups the route handlers.
type Handlers struct {
	User        *handlers.UserHandler
	Plaid       *handlers.PlaidHandler
	Account     *handlers.AccountHandler
	Transaction *handlers.TransactionHandler
}

// Options configures cross-cutting behaviour of the router.
type Options struct {
	Verifier   auth.Verifier
	AdminRole  string
	CORSOrigin string
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the gin engine serving the API.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(opts.CORSOrigin))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.Authenticate(opts.Verifier))

	// Identity
	protected.POST("/sync", h.User.Sync)
	protected.GET("/me", h.User.GetMe)
	protected.PATCH("/me", h.User.UpdateMe)
	protected.DELETE("/me", h.User.DeleteMe)

	// User administration
	users := protected.Group("/users")
	users.GET("", middleware.RequireRole(opts.AdminRole), h.User.ListUsers)
	users.GET("/:id", h.User.GetUser)
	users.PATCH("/:id", h.User.UpdateUser)
	users.DELETE("/:id", h.User.DeleteUser)

	// Bank linking and sync
	plaid := protected.Group("/plaid")
	plaid.POST("/link-token", middleware.RequirePermissions(PermWriteAccounts), h.Plaid.CreateLinkToken)
	plaid.POST("/exchange-public-token", middleware.RequirePermissions(PermWriteAccounts), h.Plaid.ExchangePublicToken)
	plaid.GET("/transactions", middleware.RequirePermissions(PermReadTransactions), h.Plaid.GetTransactions)

	// Stored data
	accounts := protected.Group("/accounts")
	accounts.GET("", h.Account.GetUserAccounts)
	accounts.GET("/:id", h.Account.GetAccountByID)

	transactions := protected.Group("/transactions")
	transactions.GET("", middleware.RequirePermissions(PermReadTransactions), h.Transaction.GetUserTransactions)
	transactions.GET("/export", middleware.RequirePermissions(PermReadTransactions), h.Transaction.ExportTransactions)

	return router
}
