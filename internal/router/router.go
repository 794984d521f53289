package router

import (
	"time"

	"beathaus/config"
	"beathaus/internal/handler"
	"beathaus/internal/middleware"
	"beathaus/internal/repository"
	"beathaus/internal/service"
	"beathaus/pkg/daraja"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	attemptRepo := repository.NewPaymentAttemptRepository(db)
	beatRepo := repository.NewBeatRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	callbackURL := ""
	if cfg.Daraja.CallbackBaseURL != "" {
		callbackURL = cfg.Daraja.CallbackBaseURL + "/api/v1/webhooks/mpesa"
	}
	gateway := daraja.New(daraja.Config{
		Env:            cfg.Daraja.Env,
		ConsumerKey:    cfg.Daraja.ConsumerKey,
		ConsumerSecret: cfg.Daraja.ConsumerSecret,
		ShortCode:      cfg.Daraja.ShortCode,
		Passkey:        cfg.Daraja.Passkey,
		CallbackURL:    callbackURL,
	})

	effects := service.NewEffectApplier(beatRepo, licenseRepo, bookingRepo)
	reconciler := service.NewReconcileService(attemptRepo, gateway, effects, auditRepo)
	checkoutSvc := service.NewCheckoutService(attemptRepo, gateway)
	poller := service.NewPoller(attemptRepo, cfg.Poll.Interval, cfg.Poll.Timeout)

	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, reconciler, poller)
	webhookHandler := handler.NewMpesaWebhookHandler(reconciler)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("/checkout", checkoutHandler.Initiate)
			payments.GET("/status/:checkout_request_id", checkoutHandler.Status)
		}
		// provider callbacks carry no caller identity token
		api.POST("/webhooks/mpesa", webhookHandler.Handle)
	}
	return r
}
