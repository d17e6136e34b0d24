// ABOUTME: Deal pipeline: deal create/edit, stage moves and per-stage aggregates
// ABOUTME: Any valid stage may follow any other; aggregates are derived on every read
package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/models"
)

// DealInput carries the editable fields of a deal. A nil field is left
// unchanged on edit. Health scores are only written by enrichment.
type DealInput struct {
	Name              *string          `json:"name,omitempty"`
	Company           *string          `json:"company,omitempty"`
	Amount            *int64           `json:"amount,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	Stage             *string          `json:"stage,omitempty"`
	Probability       *int             `json:"probability,omitempty"`
	ExpectedCloseDate *time.Time       `json:"expectedCloseDate,omitempty"`
	ContactIDs        *[]uuid.UUID     `json:"contactIds,omitempty"`
	OwnerID           *string          `json:"ownerId,omitempty"`
	Priority          *models.Priority `json:"priority,omitempty"`
}

func (in DealInput) validate(creating bool) (models.Stage, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return "", models.Invalid("name", "must not be blank")
	}
	if creating && in.Name == nil {
		return "", models.Invalid("name", "is required")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return "", models.Invalid("amount", "must not be negative")
	}
	if in.Probability != nil && (*in.Probability < 0 || *in.Probability > 100) {
		return "", models.Invalid("probability", "must be between 0 and 100")
	}
	if in.Priority != nil && !models.ValidPriority(*in.Priority) {
		return "", models.Invalid("priority", "unknown priority %q", *in.Priority)
	}
	if in.Currency != nil && len(strings.TrimSpace(*in.Currency)) != 3 {
		return "", models.Invalid("currency", "%q is not a three-letter code", *in.Currency)
	}

	var stage models.Stage
	if in.Stage != nil {
		parsed, err := models.ParseStage(*in.Stage)
		if err != nil {
			return "", err
		}
		stage = parsed
	}
	return stage, nil
}

func (in DealInput) apply(d *models.Deal, stage models.Stage) {
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Company != nil {
		d.Company = strings.TrimSpace(*in.Company)
	}
	if in.Amount != nil {
		d.Amount = *in.Amount
	}
	if in.Currency != nil {
		d.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if stage != "" {
		d.Stage = stage
	}
	if in.Probability != nil {
		d.Probability = *in.Probability
	}
	if in.ExpectedCloseDate != nil {
		t := in.ExpectedCloseDate.UTC()
		d.ExpectedCloseDate = &t
	}
	if in.ContactIDs != nil {
		d.ContactIDs = uniqueIDs(*in.ContactIDs)
	}
	if in.OwnerID != nil {
		d.OwnerID = *in.OwnerID
	}
	if in.Priority != nil {
		d.Priority = *in.Priority
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Service) CreateDeal(ctx context.Context, in DealInput) (models.Deal, error) {
	stage, err := in.validate(true)
	if err != nil {
		return models.Deal{}, err
	}

	deal := &models.Deal{
		Currency:   models.DefaultCurrency,
		Stage:      models.StageProspecting,
		Priority:   models.PriorityMedium,
		ContactIDs: []uuid.UUID{},
	}
	in.apply(deal, stage)
	if err := s.store.CreateDeal(ctx, deal); err != nil {
		return models.Deal{}, fmt.Errorf("failed to create deal: %w", err)
	}
	s.logger.Debug("deal created", zap.String("id", deal.ID.String()), zap.String("stage", string(deal.Stage)))
	return *deal, nil
}

// UpdateDeal edits a deal. An existing health score is kept.
func (s *Service) UpdateDeal(ctx context.Context, id uuid.UUID, in DealInput) (models.Deal, error) {
	stage, err := in.validate(false)
	if err != nil {
		return models.Deal{}, err
	}
	return s.store.UpdateDeal(ctx, id, func(d *models.Deal) error {
		in.apply(d, stage)
		return nil
	})
}

// MoveDeal sets a deal's stage. Any stage may move to any other, including
// itself; the stage name is checked before the store is touched.
func (s *Service) MoveDeal(ctx context.Context, id uuid.UUID, stageName string) (models.Deal, error) {
	stage, err := models.ParseStage(stageName)
	if err != nil {
		return models.Deal{}, err
	}

	var from models.Stage
	deal, err := s.store.UpdateDeal(ctx, id, func(d *models.Deal) error {
		from = d.Stage
		d.Stage = stage
		return nil
	})
	if err != nil {
		return models.Deal{}, err
	}

	s.logger.Info("deal moved",
		zap.String("deal", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(stage)))
	return deal, nil
}

// StageAggregate summarizes the deals currently in one stage.
type StageAggregate struct {
	Stage  models.Stage `json:"stage"`
	Label  string       `json:"label"`
	Count  int          `json:"count"`
	Amount int64        `json:"amount"`
}

// PipelineSummary returns one aggregate per stage in pipeline order,
// including stages with no deals.
func (s *Service) PipelineSummary(ctx context.Context) ([]StageAggregate, error) {
	deals, err := s.store.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(deals), nil
}

func summarize(deals []models.Deal) []StageAggregate {
	out := make([]StageAggregate, len(models.Stages))
	for i, stage := range models.Stages {
		out[i] = StageAggregate{Stage: stage, Label: stage.Label()}
	}
	for _, d := range deals {
		if i := models.StageIndex(d.Stage); i >= 0 {
			out[i].Count++
			out[i].Amount += d.Amount
		}
	}
	return out
}

// BoardColumn is one stage column of the pipeline board.
type BoardColumn struct {
	StageAggregate
	Deals []models.Deal `json:"deals"`
}

// Board groups deals by stage in pipeline order.
func (s *Service) Board(ctx context.Context) ([]BoardColumn, error) {
	deals, err := s.store.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	summary := summarize(deals)
	columns := make([]BoardColumn, len(summary))
	for i, agg := range summary {
		columns[i] = BoardColumn{StageAggregate: agg, Deals: []models.Deal{}}
	}
	for _, d := range deals {
		if i := models.StageIndex(d.Stage); i >= 0 {
			columns[i].Deals = append(columns[i].Deals, d)
		}
	}
	return columns, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
