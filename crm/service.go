// ABOUTME: Service is the single entry point every surface (CLI, web, MCP, TUI) calls
// ABOUTME: It wires the store, contact resolver, pipeline, tasks and enrichment together
package crm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

const DefaultCallTimeout = 30 * time.Second

type Service struct {
	store       *store.Store
	gateway     classify.Gateway
	logger      *zap.Logger
	callTimeout time.Duration

	// contactsMu serializes the duplicate check and write for contacts.
	contactsMu  sync.Mutex
	// importMu does the same for inquiry imports keyed by SourceRef.
	importMu    sync.Mutex
	suggestions *suggestionBook
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGateway sets the classifier used for enrichment. Without one, every
// enrichment outcome fails as unavailable.
func WithGateway(g classify.Gateway) Option {
	return func(s *Service) { s.gateway = g }
}

// WithCallTimeout bounds each classification call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:       st,
		logger:      zap.NewNop(),
		callTimeout: DefaultCallTimeout,
		suggestions: newSuggestionBook(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) ListContacts(ctx context.Context) ([]models.Contact, error) {
	return s.store.ListContacts(ctx)
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	return s.store.GetContact(ctx, id)
}

func (s *Service) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return s.store.ListDeals(ctx)
}

func (s *Service) GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

func (s *Service) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	return s.store.ListInquiries(ctx)
}

func (s *Service) GetInquiry(ctx context.Context, id uuid.UUID) (models.Inquiry, error) {
	return s.store.GetInquiry(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.store.ListTasks(ctx)
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (models.Task, error) {
	return s.store.GetTask(ctx, id)
}
