package testfixtures

import (
	"log/slog"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// LifecycleServiceDeps captures dependencies for constructing a lifecycle service.
type LifecycleServiceDeps struct {
	Store           application.LifecycleStore
	Publisher       application.EventPublisher
	Recorder        application.TransitionRecorder
	ConflictRetries int
	Logger          *slog.Logger
}

// NewLifecycleService builds a lifecycle service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewLifecycleService(deps LifecycleServiceDeps) *application.LifecycleService {
	return application.NewLifecycleServiceWithOptions(
		deps.Store,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		application.LifecycleOptions{
			Logger:          deps.Logger,
			Publisher:       deps.Publisher,
			Recorder:        deps.Recorder,
			ConflictRetries: deps.ConflictRetries,
		},
	)
}

// NewLookupService builds a lookup service over the given registry.
func (f *ServiceFactory) NewLookupService(assets persistence.AssetRegistry) *application.LookupService {
	return application.NewLookupService(assets, f.Clock.NowFunc())
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Operators application.OperatorDirectory
	Verify    application.KeyVerifier
	Policy    application.Policy
	Secret    []byte
	TokenTTL  time.Duration
	Logger    *slog.Logger
}

// NewAuthService builds an auth service using the factory clock. A fixed
// secret is used when none is supplied.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	secret := deps.Secret
	if len(secret) == 0 {
		secret = []byte("test-secret")
	}
	return application.NewAuthServiceWithLogger(
		deps.Operators,
		deps.Verify,
		deps.Policy,
		secret,
		deps.TokenTTL,
		f.Clock.NowFunc(),
		deps.Logger,
	)
}

// Custodian returns a principal holding every capability.
func Custodian(actorID string) application.Principal {
	return application.DefaultPolicy().Principal(actorID, "custodian")
}
