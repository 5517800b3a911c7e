package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/conectacordoba/marketplace-backend/internal/config"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/http/handlers"
	"github.com/conectacordoba/marketplace-backend/internal/http/middleware"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/handler"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/metrics"
	"github.com/conectacordoba/marketplace-backend/internal/storage"
)

// Handlers собирает все HTTP обработчики приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Profile       *handlers.ProfileHandler
	Professionals *handlers.ProfessionalHandler
	Reviews       *handlers.ReviewHandler
	Catalog       *handlers.CatalogHandler
	Health        *handlers.HealthHandler
	Connections   *handler.ConnectionHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens middleware.AccessTokenParser,
	rateLimitStore limiter.Store,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "ruta no encontrada")
	})

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	r.StaticFS(storage.PublicPrefix, http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(rateLimitStore, "api", cfg.RateLimitLimit, cfg.RateLimitPeriod))

	api.GET("/health", h.Health.Health)

	auth := middleware.AuthMiddleware(tokens)
	id := middleware.UUIDValidator("id")
	clientsOnly := middleware.RequireRole(valueobject.RoleClient)
	professionalsOnly := middleware.RequireRole(valueobject.RoleProfessional)

	authGroup := api.Group("/auth")
	{
		strict := middleware.RateLimitMiddleware(rateLimitStore, "auth", cfg.AuthRateLimitLimit, cfg.RateLimitPeriod)
		authGroup.POST("/register", strict, h.Auth.Register)
		authGroup.POST("/login", strict, h.Auth.Login)
		authGroup.GET("/me", auth, h.Auth.Me)
		authGroup.POST("/verify-email", auth, h.Auth.VerifyEmail)
	}

	users := api.Group("/users", auth)
	{
		users.GET("/profile", h.Profile.GetProfile)
		users.PUT("/profile", h.Profile.UpdateProfile)
		users.POST("/upload-photo", h.Profile.UploadPhoto)
		users.PUT("/availability", professionalsOnly, h.Profile.SetAvailability)
		users.PUT("/settings", h.Profile.UpdateSettings)
		users.DELETE("/account", h.Profile.DeleteAccount)
	}

	professionals := api.Group("/professionals")
	{
		professionals.GET("", h.Professionals.Search)
		professionals.GET("/featured", h.Professionals.Featured)
		professionals.GET("/stats", h.Professionals.Stats)
		professionals.GET("/:id", id, h.Professionals.Get)
		professionals.GET("/:id/reviews", id, h.Professionals.Reviews)
	}

	connections := api.Group("/connections", auth)
	{
		connections.POST("", h.Connections.CreateConnection)
		connections.GET("", h.Connections.ListConnections)
		connections.GET("/stats", h.Connections.Stats)
		connections.GET("/:id", id, h.Connections.GetConnection)
		connections.PUT("/:id/status", id, h.Connections.UpdateStatus)
		connections.POST("/:id/messages", id, h.Connections.SendMessage)
		connections.POST("/:id/read", id, h.Connections.MarkRead)
		connections.POST("/:id/payment", id, h.Connections.RecordPayment)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("/recent", h.Reviews.Recent)
		reviews.GET("/stats", h.Reviews.Stats)
		reviews.POST("", auth, clientsOnly, h.Reviews.Create)
		reviews.GET("/my-reviews", auth, clientsOnly, h.Reviews.Mine)
		reviews.GET("/received", auth, professionalsOnly, h.Reviews.Received)
		reviews.GET("/pending", auth, clientsOnly, h.Reviews.Pending)
		reviews.PUT("/:id", auth, id, h.Reviews.Update)
		reviews.DELETE("/:id", auth, id, h.Reviews.Delete)
	}

	trades := api.Group("/oficios")
	{
		trades.GET("", h.Catalog.ListTrades)
		trades.GET("/categorias", h.Catalog.Categories)
		trades.GET("/populares", h.Catalog.PopularTrades)
		trades.GET("/:oficio/relacionados", h.Catalog.RelatedTrades)
	}

	zones := api.Group("/zonas")
	{
		zones.GET("", h.Catalog.ListZones)
		zones.GET("/validate/:zona", h.Catalog.ValidateZone)
		zones.GET("/populares", h.Catalog.PopularZones)
		zones.GET("/estadisticas", h.Catalog.ZoneStats)
	}

	return r
}
