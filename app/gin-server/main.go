package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/careerportal/config"
	"github.com/yoockh/careerportal/internal/api/handlers"
	"github.com/yoockh/careerportal/internal/api/middleware"
	"github.com/yoockh/careerportal/internal/api/routes"
	"github.com/yoockh/careerportal/internal/logger"
	"github.com/yoockh/careerportal/internal/portal"
	"github.com/yoockh/careerportal/internal/providers/captcha"
	"github.com/yoockh/careerportal/internal/repositories/static"
	"github.com/yoockh/careerportal/internal/services"
	"github.com/yoockh/careerportal/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load error")
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rate limiter: Redis when configured, in-process otherwise
	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		rdb, err := config.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-memory rate limiting")
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, log)
			log.Info("redis connected")
		}
	}

	jobs := static.NewDefaultJobRepo()
	lib := captcha.NewLibrary(cfg.RecaptchaSiteKey, cfg.RecaptchaScriptURL, cfg.RecaptchaOnload)
	submitter := services.NewSubmissionClient(cfg.APIURL, &http.Client{}, log)

	sessions := portal.NewRegistry(func(id string) *portal.Controller {
		return portal.NewController(id, portal.Deps{
			Jobs:      jobs,
			Verifier:  captcha.NewWidgets(lib),
			Submitter: submitter,
			Logger:    log,
		})
	}, cfg.SessionIdleTTL, log)
	sessions.Start(ctx, time.Minute)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())
	r.SetHTMLTemplate(web.Templates())
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	routes.RegisterRoutes(r, routes.Deps{
		Portal:           handlers.NewPortalHandler(sessions, jobs, lib, log),
		Jobs:             handlers.NewJobsHandler(jobs),
		Sessions:         middleware.NewSessionSigner(cfg.SessionSecret, cfg.SessionIdleTTL),
		CookieSecure:     cfg.CookieSecure,
		Limiter:          limiter,
		SubmitRateLimit:  cfg.SubmitRateLimit,
		SubmitRateWindow: cfg.SubmitRateWindow,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server startup failed")
		}
	}()
	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"api_url":     cfg.APIURL,
	}).Info("server started")

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	_ = sessions.Close()

	log.Info("server exited")
}
