package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/homevisit/internal/application"
	"github.com/example/homevisit/internal/clock"
	httptransport "github.com/example/homevisit/internal/http"
	"github.com/example/homevisit/internal/notify"
	"github.com/example/homevisit/internal/persistence"
)

// services bundles the application layer built over one store.
type services struct {
	booking  *application.BookingService
	meetings *application.MeetingService
	feedback *application.FeedbackService
	faqs     *application.FaqService
}

func (a *app) buildServices(store persistence.Store, notifier application.Notifier) (services, error) {
	zone, err := clock.LoadZone(a.cfg.SourceTimezone)
	if err != nil {
		return services{}, err
	}

	booking := application.NewBookingServiceWithLogger(store, notifier, application.BookingConfig{
		Zone:            zone,
		OperatorAddress: a.cfg.NotifyTo,
		MailFrom:        a.cfg.MailFrom,
		PhoneRegion:     a.cfg.PhoneRegion,
	}, a.newID, a.now, a.logger)
	meetings := application.NewMeetingServiceWithLogger(store, zone, a.newID, a.now, a.logger)
	meetings.SetInvalidator(booking)

	repos := store.Repositories()
	return services{
		booking:  booking,
		meetings: meetings,
		feedback: application.NewFeedbackServiceWithLogger(repos.Feedback, notifier, a.cfg.NotifyTo, a.cfg.PhoneRegion, a.newID, a.now, a.logger),
		faqs:     application.NewFaqService(repos.Faqs, a.logger),
	}, nil
}

// buildNotifier fans out to every configured channel. The returned cleanup
// releases broker connections.
func (a *app) buildNotifier() (notify.Notifier, func(), error) {
	var (
		fanout  notify.Fanout
		closers []func() error
	)
	for _, name := range a.cfg.Notifiers {
		switch name {
		case "log":
			fanout = append(fanout, notify.NewLogNotifier(a.logger))
		case "smtp":
			n, err := notify.NewSMTPNotifier(a.cfg.SMTPAddr, a.cfg.SMTPUsername, a.cfg.SMTPPassword, a.cfg.MailFrom)
			if err != nil {
				return nil, nil, fmt.Errorf("smtp notifier: %w", err)
			}
			fanout = append(fanout, n)
		case "sendgrid":
			fanout = append(fanout, notify.NewSendGridNotifier(a.cfg.SendGridAPIKey, a.cfg.MailFrom))
		case "amqp":
			n := notify.NewAMQPNotifier(a.cfg.AMQPURL, a.cfg.AMQPQueue)
			fanout = append(fanout, n)
			closers = append(closers, n.Close)
		}
	}

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				a.logger.Error("failed to close notifier", "error", err)
			}
		}
	}
	return fanout, cleanup, nil
}

// buildLimiter returns nil, disabling rate limiting, when no redis address
// is configured or the server cannot be reached at startup.
func (a *app) buildLimiter(ctx context.Context) (httptransport.Limiter, func()) {
	if a.cfg.RedisAddr == "" {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	closeClient := func() {
		if err := client.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis unavailable, rate limiting disabled", "addr", a.cfg.RedisAddr, "error", err)
		closeClient()
		return nil, func() {}
	}
	return httptransport.NewRedisLimiter(client, a.cfg.RateLimitCapacity, a.cfg.RateLimitRefillInterval), closeClient
}

// handler assembles the HTTP surface over svc.
func (a *app) handler(svc services, admin *application.AdminAuthService, limiter httptransport.Limiter, pinger httptransport.Pinger) http.Handler {
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Booking:      httptransport.NewBookingHandler(svc.booking, a.cfg.HideWeeksAfter, a.logger),
		Help:         httptransport.NewHelpHandler(svc.faqs, svc.feedback, a.logger),
		Admin:        httptransport.NewAdminHandler(admin, svc.meetings, a.cfg.DefaultDurationMinutes, a.now, a.logger),
		Health:       httptransport.NewHealthHandler(pinger, a.logger),
		RequireAdmin: httptransport.RequireAdmin(admin, a.logger),
		RateLimit:    httptransport.RateLimit(limiter, a.logger),
	})
	return httptransport.RequestLogger(a.logger)(router)
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.ValidateServe(); err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(ctx, store)

	notifier, closeNotifier, err := a.buildNotifier()
	if err != nil {
		return err
	}
	defer closeNotifier()

	svc, err := a.buildServices(store, notifier)
	if err != nil {
		return err
	}

	admin := application.NewAdminAuthServiceWithLogger(a.cfg.AdminPasswordHash, []byte(a.cfg.JWTSecret), a.cfg.JWTTTL, nil, a.now, a.logger)
	limiter, closeLimiter := a.buildLimiter(ctx)
	defer closeLimiter()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.handler(svc, admin, limiter, store),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("homevisit API listening", "addr", server.Addr, "timezone", a.cfg.SourceTimezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}
