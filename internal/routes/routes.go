package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/controllers"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	DB           *gorm.DB
	JWT          *middleware.JWT
	Auth         controllers.AuthService
	Participants controllers.ParticipantService
	Users        controllers.UserService
	UploadDir    string
	// AccessLog receives one line per request; nil disables access logging.
	AccessLog io.Writer
}

func SetupRouter(d Deps) *gin.Engine {
	controllers.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	if d.AccessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(d.AccessLog),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/metrics", "/health"}),
			ginlog.WithLogger(func(_ *gin.Context, l zerolog.Logger) zerolog.Logger {
				return l.With().Str("component", "http").Logger()
			}),
		))
	}
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", healthHandler(d.DB))

	AuthRoutes(r, controllers.NewAuthHandler(d.Auth))
	ParticipantRoutes(r, d.JWT, controllers.NewParticipantHandler(d.Participants))
	UserRoutes(r, d.JWT, controllers.NewUserHandler(d.Users, d.UploadDir))

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
