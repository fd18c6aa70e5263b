package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/boostly/boosting-marketplace/docs"
	"github.com/boostly/boosting-marketplace/internal/api/handler"
	"github.com/boostly/boosting-marketplace/internal/api/middleware"
	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth      ports.AuthService
	Lifecycle ports.LifecycleService
	Orders    ports.OrderQueryService
	Wallet    ports.WalletService
	Users     ports.UserService
	Chat      ports.ChatService
	Sockets   handler.SocketServer
	Pingers   map[string]handler.Pinger
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "boosting",
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	orderHandler := handler.NewOrderHandler(d.Lifecycle, d.Orders)
	walletHandler := handler.NewWalletHandler(d.Wallet)
	userHandler := handler.NewUserHandler(d.Users)
	chatHandler := handler.NewChatHandler(d.Chat, d.Sockets, d.Log)
	auth := middleware.Auth(d.JWTSecret)

	// --- Public routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	e.GET("/health", handler.NewHealthHandler().Liveness)                            // liveness: is the process alive?
	e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.Pingers).Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Any authenticated principal ---
	e.GET("/orders/:id", orderHandler.Get, auth)
	e.GET("/ws", chatHandler.WebSocket, auth)

	chat := e.Group("/chat/orders", auth)
	chat.GET("/:orderId", chatHandler.History)
	chat.POST("/:orderId", chatHandler.Send)

	// --- Client ---
	client := e.Group("/client/orders", auth, middleware.RBAC(domain.RoleClient))
	client.POST("", orderHandler.Create)
	client.GET("/history", orderHandler.History)
	client.PUT("/:id/publish", orderHandler.Publish)
	client.PUT("/:id/request-booster", orderHandler.RequestNewBooster)
	client.POST("/:id/feedback", orderHandler.SubmitFeedback)

	e.GET("/client/account", userHandler.Profile, auth, middleware.RBAC(domain.RoleClient))
	e.PUT("/client/account", userHandler.UpdateProfile, auth, middleware.RBAC(domain.RoleClient))

	// --- Booster ---
	booster := e.Group("/booster", auth, middleware.RBAC(domain.RoleBooster))
	booster.GET("/orders", orderHandler.ListAvailable)
	booster.GET("/orders/history", orderHandler.History)
	booster.PUT("/orders/:id/claim", orderHandler.Claim)
	booster.PUT("/orders/:id/complete", orderHandler.Complete)
	booster.PUT("/orders/:id/abandon", orderHandler.Abandon)
	booster.GET("/wallet", walletHandler.Balance)
	booster.GET("/profile", userHandler.Profile)
	booster.PUT("/profile", userHandler.UpdateProfile)

	// --- Admin ---
	admin := e.Group("/admin", auth, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/orders", orderHandler.ListAll)
	admin.POST("/orders", orderHandler.Create)
	admin.PUT("/orders/:id/assign-booster", orderHandler.Assign)
	admin.PUT("/orders/:id/remove-booster", orderHandler.RemoveBooster)
	admin.PUT("/orders/:id", orderHandler.Update)
	admin.DELETE("/orders/:id", orderHandler.Delete)
	admin.GET("/users", walletHandler.ListUsers)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.PUT("/boosters/:id/add-funds", walletHandler.AddFunds)
	admin.PUT("/boosters/:id/remove-funds", walletHandler.RemoveFunds)

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			}
			ev.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
