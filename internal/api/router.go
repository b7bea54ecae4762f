package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/callable"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/observ"
	"github.com/lalith-99/fretboard/internal/repository"
	"github.com/lalith-99/fretboard/internal/tracking"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Users         repository.UserRepository
	Runs          repository.RunRepository
	Guitars       repository.GuitarRepository
	Notes         repository.NoteRepository
	Notifications repository.NotificationRepository
	Clients       repository.ClientRepository

	Tracking  *tracking.Service
	Callables *callable.Service
	Hooks     *live.Hooks
	Publisher *live.Publisher

	JWTSecret string
	TokenTTL  time.Duration

	// WSPongWait bounds websocket silence; zero means DefaultPongWait.
	WSPongWait time.Duration

	// Health is optional; nil reports ok without checking anything.
	Health HealthChecker

	Logger *zap.Logger
}

// NewRouter wires every route. Everything under /v1 except health,
// signup, login and the callables requires a bearer token.
func NewRouter(d Deps) *gin.Engine {
	gate := auth.NewGate(d.Users)
	staffOnly := middleware.RequireRole(gate, auth.StaffRoles)
	billingOnly := middleware.RequireRole(gate, auth.BillingRoles)

	authH := NewAuthHandler(d.Users, d.JWTSecret, d.TokenTTL, d.Logger)
	runH := NewRunHandler(d.Runs, d.Tracking, d.Logger)
	guitarH := NewGuitarHandler(d.Guitars, d.Tracking, gate, d.Logger)
	noteH := NewNoteHandler(d.Guitars, d.Notes, d.Tracking, gate, d.Logger)
	clientH := NewClientHandler(d.Clients, d.Publisher, gate, d.Logger)
	notificationH := NewNotificationHandler(d.Notifications, d.Publisher, d.Logger)
	callableH := NewCallableHandler(d.Callables, d.Logger)
	wsH := NewWSHandler(d.Hooks, d.Guitars, d.Tracking, gate, d.WSPongWait, d.Logger)

	srv := gin.New()
	srv.Use(gin.Recovery(), observ.SentryMiddleware(), requestLogger(d.Logger))

	// Public so load balancers can probe it.
	srv.GET("/v1/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := srv.Group("/v1")
	public.POST("/auth/signup", authH.Signup)
	public.POST("/auth/login", authH.Login)
	public.POST("/callable/:name", middleware.OptionalAuth(d.JWTSecret), callableH.Invoke)

	v1 := srv.Group("/v1")
	v1.Use(middleware.TokenFromQuery(), middleware.AuthMiddleware(d.JWTSecret))

	v1.POST("/auth/refresh", authH.Refresh)

	v1.POST("/runs", staffOnly, runH.Create)
	v1.GET("/runs", staffOnly, runH.List)
	v1.GET("/runs/:id", staffOnly, runH.GetByID)
	v1.GET("/runs/:id/stages", staffOnly, runH.ListStages)
	v1.POST("/runs/:id/stages", staffOnly, runH.AddStage)
	v1.GET("/runs/:id/guitars", staffOnly, guitarH.ListByRun)

	v1.POST("/guitars", staffOnly, guitarH.Create)
	v1.GET("/guitars/:id", guitarH.GetByID)
	v1.PATCH("/guitars/:id/stage", staffOnly, guitarH.Move)
	v1.POST("/guitars/:id/notes", staffOnly, noteH.Create)
	v1.GET("/guitars/:id/notes", noteH.List)

	v1.GET("/clients/:uid", clientH.GetProfile)
	v1.PUT("/clients/:uid", clientH.PutProfile)
	v1.GET("/clients/:uid/guitars", guitarH.ListByClient)
	v1.GET("/clients/:uid/invoices", clientH.ListInvoices)
	v1.POST("/clients/:uid/invoices", billingOnly, clientH.CreateInvoice)

	v1.GET("/notifications", notificationH.List)
	v1.PATCH("/notifications/:id/read", notificationH.MarkRead)

	v1.GET("/ws/subscribe", wsH.Subscribe)
	v1.GET("/ws/board/:runID", staffOnly, wsH.Board)

	return srv
}

// requestLogger writes one zap line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
