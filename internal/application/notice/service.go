package notice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmca-notices/internal/application/session"
	"github.com/dmca-notices/internal/domain"
	"github.com/dmca-notices/internal/pkg/dmca"
	"github.com/dmca-notices/internal/pkg/id"
	"github.com/dmca-notices/internal/pkg/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DraftKey is the session slot holding the confirmed, not yet stored form.
	DraftKey = "dmca"

	// DeliveredMessage is flashed after a notice is stored.
	DeliveredMessage = "Your DMCA notice has been delivered!"

	mailTemplate = "emails.dmca"
	mailSubject  = "DMCA Notice"
)

var noticesStored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dmca_notices_stored_total",
	Help: "Notices persisted by the store step",
})

// Request carries the authenticated caller and their session into every
// workflow step.
type Request struct {
	User    *domain.User
	Session *session.Session
}

// Listing is the result of List.
type Listing struct {
	Notices []domain.Notice
	Flash   string
}

// Confirmation is the result of a successful Confirm.
type Confirmation struct {
	Template string
	Draft    domain.Draft
}

type Service interface {
	List(ctx context.Context, req Request, filter domain.NoticeFilter) (*Listing, error)
	CreateForm(ctx context.Context) ([]domain.ProviderOption, error)
	Confirm(ctx context.Context, req Request, form domain.Draft) (*Confirmation, error)
	Store(ctx context.Context, req Request, templateName string) (*domain.Notice, error)
	Update(ctx context.Context, req Request, noticeID string, contentRemoved bool) (*domain.Notice, error)
	Get(ctx context.Context, req Request, noticeID string) (*domain.Notice, error)
}

// Repository persists notices. ListByOwner returns newest first.
type Repository interface {
	Save(ctx context.Context, n *domain.Notice) error
	Get(ctx context.Context, noticeID string) (*domain.Notice, error)
	ListByOwner(ctx context.Context, userID string, filter domain.NoticeFilter) ([]domain.Notice, error)
	SetContentRemoved(ctx context.Context, noticeID, ownerID string, removed bool) (*domain.Notice, error)
}

// ProviderDirectory lists providers ordered by name, then id.
type ProviderDirectory interface {
	List(ctx context.Context) ([]domain.Provider, error)
	Get(ctx context.Context, providerID string) (*domain.Provider, error)
}

type Compiler interface {
	Compile(name string, form domain.Draft, user domain.User) (string, error)
}

// Dispatcher queues an email for background delivery. It must not block.
type Dispatcher interface {
	Enqueue(templateRef string, data any, from, to, subject string)
}

type Archive interface {
	ArchiveNotice(ctx context.Context, n *domain.Notice) error
}

type EventPublisher interface {
	NoticeStored(ctx context.Context, n *domain.Notice) error
}

type service struct {
	notices   Repository
	providers ProviderDirectory
	compiler  Compiler
	mail      Dispatcher
	archive   Archive
	events    EventPublisher
	now       func() time.Time
}

// ServiceDeps wires the workflow. Archive and Events are optional.
type ServiceDeps struct {
	Notices   Repository
	Providers ProviderDirectory
	Compiler  Compiler
	Mail      Dispatcher
	Archive   Archive
	Events    EventPublisher
	Now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		notices:   deps.Notices,
		providers: deps.Providers,
		compiler:  deps.Compiler,
		mail:      deps.Mail,
		archive:   deps.Archive,
		events:    deps.Events,
		now:       now,
	}
}

func (s *service) List(ctx context.Context, req Request, filter domain.NoticeFilter) (*Listing, error) {
	notices, err := s.notices.ListByOwner(ctx, req.User.UserID, filter)
	if err != nil {
		return nil, unavailable("list notices", err)
	}
	flash, err := req.Session.TakeFlash(ctx)
	if err != nil {
		slog.Warn("failed to read flash message", "session_id", req.Session.ID(), "err", err)
	}
	return &Listing{Notices: notices, Flash: flash}, nil
}

func (s *service) CreateForm(ctx context.Context) ([]domain.ProviderOption, error) {
	providers, err := s.providers.List(ctx)
	if err != nil {
		return nil, unavailable("list providers", err)
	}
	opts := make([]domain.ProviderOption, len(providers))
	for i, p := range providers {
		opts[i] = domain.ProviderOption{ID: p.ProviderID, Name: p.Name}
	}
	return opts, nil
}

func (s *service) Confirm(ctx context.Context, req Request, form domain.Draft) (*Confirmation, error) {
	if err := validate.Struct(form.Form()); err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(ctx, form[domain.FieldProviderID])
	if errors.Is(err, domain.ErrNotFound) {
		return nil, validate.Field(domain.FieldProviderID, "is not a known provider")
	}
	if err != nil {
		return nil, unavailable("get provider", err)
	}

	content, err := s.compile(dmca.DefaultTemplate, form, provider, req.User)
	if err != nil {
		return nil, err
	}
	draft := form.Clone()
	if err := req.Session.Put(ctx, DraftKey, draft); err != nil {
		return nil, unavailable("save draft", err)
	}
	return &Confirmation{Template: content, Draft: draft}, nil
}

func (s *service) Store(ctx context.Context, req Request, templateName string) (*domain.Notice, error) {
	var draft domain.Draft
	found, err := req.Session.Get(ctx, DraftKey, &draft)
	if err != nil {
		return nil, unavailable("load draft", err)
	}
	if !found {
		return nil, fmt.Errorf("store notice: %w", domain.ErrMissingDraft)
	}
	if templateName == "" {
		templateName = dmca.DefaultTemplate
	}

	provider, err := s.providers.Get(ctx, draft[domain.FieldProviderID])
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("provider %s no longer listed: %w", draft[domain.FieldProviderID], domain.ErrBadRequest)
	}
	if err != nil {
		return nil, unavailable("get provider", err)
	}
	content, err := s.compile(templateName, draft, provider, req.User)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := domain.OpenNotice(draft).UseTemplate(templateName, content)
	n.NoticeID = id.New()
	n.UserID = req.User.UserID
	n.ContentRemoved = false
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.notices.Save(ctx, n); err != nil {
		return nil, unavailable("save notice", err)
	}
	noticesStored.Inc()

	s.afterStore(ctx, req, n, provider)
	return n, nil
}

// afterStore runs the follow-up steps of a successful store. None of them
// can fail the request.
func (s *service) afterStore(ctx context.Context, req Request, n *domain.Notice, provider *domain.Provider) {
	if err := req.Session.Forget(ctx, DraftKey); err != nil {
		slog.Warn("failed to clear draft", "session_id", req.Session.ID(), "err", err)
	}
	if err := req.Session.Flash(ctx, DeliveredMessage); err != nil {
		slog.Warn("failed to set flash message", "session_id", req.Session.ID(), "err", err)
	}

	s.mail.Enqueue(mailTemplate, n, req.User.Email, provider.Email, mailSubject)

	if s.archive != nil {
		if err := s.archive.ArchiveNotice(ctx, n); err != nil {
			slog.Warn("failed to archive notice", "notice_id", n.NoticeID, "err", err)
		}
	}
	if s.events != nil {
		if err := s.events.NoticeStored(ctx, n); err != nil {
			slog.Warn("failed to publish notice event", "notice_id", n.NoticeID, "err", err)
		}
	}
}

func (s *service) Update(ctx context.Context, req Request, noticeID string, contentRemoved bool) (*domain.Notice, error) {
	if _, err := s.Get(ctx, req, noticeID); err != nil {
		return nil, err
	}
	n, err := s.notices.SetContentRemoved(ctx, noticeID, req.User.UserID, contentRemoved)
	if err != nil {
		return nil, unavailable("update notice", err)
	}
	return n, nil
}

// Get returns the notice only to its owner. A notice owned by someone else
// is reported as not found.
func (s *service) Get(ctx context.Context, req Request, noticeID string) (*domain.Notice, error) {
	n, err := s.notices.Get(ctx, noticeID)
	if err != nil {
		return nil, unavailable("get notice", err)
	}
	if n.UserID != req.User.UserID {
		return nil, fmt.Errorf("notice %s: %w", noticeID, domain.ErrNotFound)
	}
	return n, nil
}

func (s *service) compile(name string, form domain.Draft, provider *domain.Provider, user *domain.User) (string, error) {
	data := form.Clone()
	data.Fill(domain.FieldRecipient, provider.Name)
	content, err := s.compiler.Compile(name, data, *user)
	if err != nil {
		return "", fmt.Errorf("compile notice: %w", err)
	}
	return content, nil
}

// unavailable keeps domain errors intact and marks any other storage
// failure as ErrUnavailable.
func unavailable(op string, err error) error {
	for _, known := range []error{
		domain.ErrNotFound, domain.ErrBadRequest, domain.ErrForbidden,
		domain.ErrUnauthorized, domain.ErrMissingDraft, domain.ErrUnavailable,
	} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}
