// Package service implements the organizer team lifecycle: invitations, permission overlays,
// role changes and removal. Every mutation reads, checks and writes the membership row inside
// one transaction and dispatches notifications only after it commits.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/repository"
	"organizer-team/backend/internal/notification"
	organizerdomain "organizer-team/backend/internal/organizer/domain"
	userdomain "organizer-team/backend/internal/user/domain"
)

const instrumentationName = "organizer-team/backend/internal/membership/service"

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// OrganizerRepo is the minimal organizer repository needed by the service.
type OrganizerRepo interface {
	GetByID(ctx context.Context, id string) (*organizerdomain.Organizer, error)
}

// PasswordHasher hashes the throwaway password given to users created by an invitation.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// Service runs membership mutations.
type Service struct {
	memberships repository.Repository
	users       UserRepo
	organizers  OrganizerRepo
	hasher      PasswordHasher
	decider     *authz.Decider
	notifier    notification.Dispatcher
	logger      *zap.Logger
	tracer      trace.Tracer
	mutations   metric.Int64Counter
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the dispatcher used after each committed mutation.
func WithNotifier(n notification.Dispatcher) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracerProvider sets the provider for action spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the provider for the mutation counter. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.mutations = newMutationCounter(mp) }
}

// WithClock sets the time source used when an input carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service with the given dependencies.
func NewService(
	memberships repository.Repository,
	users UserRepo,
	organizers OrganizerRepo,
	hasher PasswordHasher,
	opts ...Option,
) *Service {
	s := &Service{
		memberships: memberships,
		users:       users,
		organizers:  organizers,
		hasher:      hasher,
		decider:     authz.NewDecider(authz.ActionStrategies()...),
		notifier:    notification.Nop{},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	if s.mutations == nil {
		s.mutations = newMutationCounter(otel.GetMeterProvider())
	}
	return s
}

func newMutationCounter(mp metric.MeterProvider) metric.Int64Counter {
	c, err := mp.Meter(instrumentationName).Int64Counter("membership.mutations",
		metric.WithDescription("Membership mutations by action and outcome"))
	if err != nil {
		otel.Handle(err)
	}
	return c
}

// at returns t in UTC, or the service clock when t is zero.
func (s *Service) at(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC()
}

// observe wraps one action in a span and records its outcome.
func (s *Service) observe(ctx context.Context, action, organizerID string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "membership."+action,
		trace.WithAttributes(attribute.String("organizer.id", organizerID)))
	defer span.End()

	err := fn(ctx)
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.mutations != nil {
		s.mutations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
	return err
}

func (s *Service) loadOrganizer(ctx context.Context, organizerID string) (*organizerdomain.Organizer, error) {
	if organizerID == "" {
		return nil, domain.InvalidInput("organizer id is required")
	}
	org, err := s.organizers.GetByID(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.NotFound("organizer %s not found", organizerID)
	}
	return org, nil
}

func (s *Service) loadUser(ctx context.Context, userID, what string) (*userdomain.User, error) {
	if userID == "" {
		return nil, domain.InvalidInput("%s id is required", what)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("%s %s not found", what, userID)
	}
	return u, nil
}

// authorize runs the action chain and returns Unauthorized when it does not allow.
func (s *Service) authorize(actor authz.Actor, capability authz.Capability, organizerID string, target *authz.Target) error {
	dec, _ := s.decider.Decide(authz.Request{
		Actor:      actor,
		Capability: capability,
		Organizer:  authz.Organizer{ID: organizerID},
		Target:     target,
	})
	if dec != authz.Allow {
		return domain.Unauthorized("user %s may not %s in organizer %s", actor.UserID, capability, organizerID)
	}
	return nil
}

// adminRecipients returns active owners and managers of the organizer. Failures are logged.
func (s *Service) adminRecipients(ctx context.Context, organizerID string) []string {
	list, err := s.memberships.ListByOrganizer(ctx, organizerID, repository.ListFilter{
		ActiveOnly: true,
		Roles:      []domain.Role{domain.RoleOwner, domain.RoleManager},
	})
	if err != nil {
		s.logger.Warn("membership: list notification recipients failed", zap.String("organizer_id", organizerID), zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(list))
	for _, m := range list {
		if m.CanAct() {
			out = append(out, m.UserID)
		}
	}
	return out
}

// notify dispatches event after commit. Errors are logged, never returned.
func (s *Service) notify(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("membership: notification failed",
			zap.String("type", string(event.Type)),
			zap.String("organizer_id", event.OrganizerID),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

// Get returns the membership for (organizer, user).
func (s *Service) Get(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	m, err := s.memberships.GetByOrganizerAndUser(ctx, organizerID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NotFound("user %s is not a member of organizer %s", userID, organizerID)
	}
	return m, nil
}

// List returns the organizer's memberships matching filter.
func (s *Service) List(ctx context.Context, organizerID string, filter repository.ListFilter) ([]*domain.Membership, error) {
	if _, err := s.loadOrganizer(ctx, organizerID); err != nil {
		return nil, err
	}
	return s.memberships.ListByOrganizer(ctx, organizerID, filter)
}
