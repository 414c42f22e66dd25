package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yoockh/careerportal/internal/api/handlers"
	"github.com/yoockh/careerportal/internal/api/middleware"
)

type Deps struct {
	Portal *handlers.PortalHandler
	Jobs   *handlers.JobsHandler

	Sessions     *middleware.SessionSigner
	CookieSecure bool

	Limiter          middleware.Limiter
	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	CORSAllowOrigins []string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Public JSON catalog
	api := r.Group("/api")
	api.Use(cors.New(corsConfig(d.CORSAllowOrigins)))
	api.GET("/jobs", d.Jobs.List)
	api.GET("/jobs/:id", d.Jobs.Get)

	// Portal pages (session cookie)
	web := r.Group("/")
	web.Use(middleware.PortalSession(d.Sessions, d.CookieSecure))

	web.GET("/", d.Portal.Page)
	web.GET("/apply", d.Portal.Page)
	web.POST("/jobs/:id", d.Portal.SelectJob)

	web.POST("/apply/fields", d.Portal.SaveFields)
	web.POST("/apply/files/:kind", d.Portal.AttachFile)
	web.POST("/apply/files/:kind/remove", d.Portal.RemoveFile)
	web.POST("/apply/back", d.Portal.Back)
	web.POST("/apply/submit",
		middleware.RateLimit(d.Limiter, "submit", d.SubmitRateLimit, d.SubmitRateWindow, d.Portal.RateLimited),
		d.Portal.Submit,
	)
	web.POST("/submitted/dismiss", d.Portal.Dismiss)

	web.POST("/verifier/loaded", d.Portal.VerifierLoaded)
	web.POST("/verifier/:outcome", d.Portal.VerifierOutcome)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "OPTIONS"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
