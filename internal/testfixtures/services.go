package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/homevisit/internal/application"
	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/persistence"
)

// AdminPassword is the operator password accepted by services built with a
// ServiceFactory.
const AdminPassword = "operator-secret"

// fastArgon2Params keep password hashing cheap in tests.
var fastArgon2Params = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

// ServiceFactory builds application services wired to a deterministic clock
// and identifier sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Zone        *clock.Zone
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory. The zone defaults to UTC.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Zone == nil {
		factory.Zone = clock.NewZone(time.UTC)
	}
	if factory.Logger == nil {
		factory.Logger = DiscardLogger()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(c *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = c
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithZone sets the operator zone.
func WithZone(zone *clock.Zone) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Zone = zone
	}
}

// Services bundles every application service over one store.
type Services struct {
	Booking  *application.BookingService
	Meetings *application.MeetingService
	Feedback *application.FeedbackService
	Faqs     *application.FaqService
	Admin    *application.AdminAuthService
}

// ServicesDeps captures the optional collaborators of NewServices.
type ServicesDeps struct {
	Notifier        application.Notifier
	OperatorAddress string
	TokenTTL        time.Duration
}

// NewServices wires all services to store. Meeting changes invalidate the
// booking listing just as in the server.
func (f *ServiceFactory) NewServices(tb testing.TB, store persistence.Store, deps ServicesDeps) Services {
	tb.Helper()

	hash, err := application.CreatePasswordHash(AdminPassword, fastArgon2Params)
	if err != nil {
		tb.Fatalf("hash admin password: %v", err)
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = time.Hour
	}

	idGen := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()
	repos := store.Repositories()

	booking := application.NewBookingServiceWithLogger(store, deps.Notifier, application.BookingConfig{
		Zone:            f.Zone,
		OperatorAddress: deps.OperatorAddress,
		MailFrom:        "homevisit@example.com",
	}, idGen, now, f.Logger)
	meetings := application.NewMeetingServiceWithLogger(store, f.Zone, idGen, now, f.Logger)
	meetings.SetInvalidator(booking)

	return Services{
		Booking:  booking,
		Meetings: meetings,
		Feedback: application.NewFeedbackServiceWithLogger(repos.Feedback, deps.Notifier, deps.OperatorAddress, "", idGen, now, f.Logger),
		Faqs:     application.NewFaqService(repos.Faqs, f.Logger),
		Admin:    application.NewAdminAuthServiceWithLogger(hash, []byte("test-signing-key"), deps.TokenTTL, nil, now, f.Logger),
	}
}
