// ABOUTME: Inquiry intake and the human-in-the-loop suggestion book
// ABOUTME: Triage suggestions only change an inquiry's status when someone applies them
package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/models"
)

// Suggestion is a pending triage result awaiting a human decision.
type Suggestion struct {
	InquiryID uuid.UUID             `json:"inquiryId"`
	Analysis  models.AnalysisResult `json:"analysis"`
	Batch     string                `json:"batch"`
	CreatedAt time.Time             `json:"createdAt"`
}

type suggestionBook struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Suggestion
}

func newSuggestionBook() *suggestionBook {
	return &suggestionBook{items: make(map[uuid.UUID]Suggestion)}
}

func (b *suggestionBook) put(id uuid.UUID, analysis models.AnalysisResult, batch string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[id] = Suggestion{InquiryID: id, Analysis: analysis, Batch: batch, CreatedAt: time.Now().UTC()}
}

func (b *suggestionBook) get(id uuid.UUID) (Suggestion, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sg, ok := b.items[id]
	return sg, ok
}

func (b *suggestionBook) remove(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[id]
	delete(b.items, id)
	return ok
}

func (b *suggestionBook) all() []Suggestion {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Suggestion, 0, len(b.items))
	for _, sg := range b.items {
		out = append(out, sg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].InquiryID.String() < out[j].InquiryID.String()
	})
	return out
}

func (s *Service) PendingSuggestion(id uuid.UUID) (Suggestion, bool) {
	return s.suggestions.get(id)
}

func (s *Service) PendingSuggestions() []Suggestion {
	return s.suggestions.all()
}

// DismissSuggestion drops a pending suggestion without touching the inquiry.
func (s *Service) DismissSuggestion(id uuid.UUID) bool {
	return s.suggestions.remove(id)
}

// ApplyInquirySuggestion writes a suggested status (in_progress or done) to
// the inquiry and clears its pending suggestion.
func (s *Service) ApplyInquirySuggestion(ctx context.Context, id uuid.UUID, suggested models.InquiryStatus) (models.Inquiry, error) {
	if suggested != models.InquiryInProgress && suggested != models.InquiryDone {
		return models.Inquiry{}, models.Invalid("suggested_status", "must be in_progress or done, got %q", suggested)
	}
	q, err := s.store.UpdateInquiry(ctx, id, func(q *models.Inquiry) error {
		q.Status = suggested
		return nil
	})
	if err != nil {
		return models.Inquiry{}, err
	}
	s.suggestions.remove(id)
	s.logger.Info("inquiry suggestion applied", zap.String("inquiry", id.String()), zap.String("status", string(suggested)))
	return q, nil
}

// SetInquiryStatus is a direct status change made by a person.
func (s *Service) SetInquiryStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) (models.Inquiry, error) {
	if !models.ValidInquiryStatus(status) {
		return models.Inquiry{}, models.Invalid("status", "unknown inquiry status %q", status)
	}
	return s.store.UpdateInquiry(ctx, id, func(q *models.Inquiry) error {
		q.Status = status
		return nil
	})
}

// ImportInquiry stores an externally received inquiry. When SourceRef matches
// an inquiry already stored, that inquiry is returned and created is false.
func (s *Service) ImportInquiry(ctx context.Context, q models.Inquiry) (inquiry models.Inquiry, created bool, err error) {
	q.Name = strings.TrimSpace(q.Name)
	q.Email = strings.TrimSpace(q.Email)
	if q.Name == "" && q.Email == "" {
		return models.Inquiry{}, false, models.Invalid("inquiry", "name or email is required")
	}
	if q.Language == "" {
		q.Language = models.LanguageEnglish
	}
	if !models.ValidLanguage(q.Language) {
		return models.Inquiry{}, false, models.Invalid("language", "must be he or en, got %q", q.Language)
	}
	if q.Status == "" {
		q.Status = models.InquiryNew
	}
	if !models.ValidInquiryStatus(q.Status) {
		return models.Inquiry{}, false, models.Invalid("status", "unknown inquiry status %q", q.Status)
	}

	s.importMu.Lock()
	defer s.importMu.Unlock()

	if q.SourceRef != "" {
		existing, err := s.store.ListInquiries(ctx)
		if err != nil {
			return models.Inquiry{}, false, err
		}
		for _, e := range existing {
			if e.SourceRef == q.SourceRef {
				return e, false, nil
			}
		}
	}

	if err := s.store.CreateInquiry(ctx, &q); err != nil {
		return models.Inquiry{}, false, fmt.Errorf("failed to create inquiry: %w", err)
	}
	return q, true, nil
}
