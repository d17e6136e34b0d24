// ABOUTME: Enrichment orchestration: concurrent classifier calls with isolated failures
// ABOUTME: Results are applied in one pass after every call in the batch has settled
package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/models"
)

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Failure reasons beyond those reported by the classifier.
const (
	ReasonNotFound = "not_found"
	ReasonStore    = "store"
)

var errNoGateway = errors.New("no classifier configured")

// Outcome reports what happened to one record of an enrichment batch.
type Outcome struct {
	ID          uuid.UUID              `json:"id"`
	Kind        classify.Kind          `json:"kind"`
	Status      OutcomeStatus          `json:"status"`
	HealthScore *int                   `json:"healthScore,omitempty"`
	Analysis    *models.AnalysisResult `json:"analysis,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Err         error                  `json:"-"`
}

func (o Outcome) Succeeded() bool { return o.Status == OutcomeSucceeded }

func failed(id uuid.UUID, kind classify.Kind, reason string, err error) Outcome {
	return Outcome{ID: id, Kind: kind, Status: OutcomeFailed, Reason: reason, Error: err.Error(), Err: err}
}

func callFailed(id uuid.UUID, kind classify.Kind, err error) Outcome {
	f := classify.AsFailure(err)
	return failed(id, kind, string(f.Reason), f)
}

func lookupFailed(id uuid.UUID, kind classify.Kind, err error) Outcome {
	if isNotFound(err) {
		return failed(id, kind, ReasonNotFound, err)
	}
	return failed(id, kind, ReasonStore, err)
}

func (s *Service) callGateway(ctx context.Context, req classify.Request) ([]byte, error) {
	if s.gateway == nil {
		return nil, &classify.Failure{Reason: classify.ReasonUnavailable, Err: errNoGateway}
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.gateway.Classify(callCtx, req)
}

// EnrichDeal asks the classifier for a deal's health score. Nothing is written.
func (s *Service) EnrichDeal(ctx context.Context, deal models.Deal) Outcome {
	contacts, err := s.ContactsForDeal(ctx, deal)
	if err != nil {
		return lookupFailed(deal.ID, classify.KindDealHealth, err)
	}
	raw, err := s.callGateway(ctx, classify.ForDeal(deal, contacts))
	if err != nil {
		return callFailed(deal.ID, classify.KindDealHealth, err)
	}
	score, err := classify.ParseDealHealth(raw)
	if err != nil {
		return callFailed(deal.ID, classify.KindDealHealth, err)
	}
	return Outcome{ID: deal.ID, Kind: classify.KindDealHealth, Status: OutcomeSucceeded, HealthScore: &score}
}

// TriageInquiry asks the classifier to analyze an inquiry. Nothing is written.
func (s *Service) TriageInquiry(ctx context.Context, q models.Inquiry) Outcome {
	raw, err := s.callGateway(ctx, classify.ForInquiry(q))
	if err != nil {
		return callFailed(q.ID, classify.KindInquiryTriage, err)
	}
	analysis, err := classify.ParseTriage(raw)
	if err != nil {
		return callFailed(q.ID, classify.KindInquiryTriage, err)
	}
	return Outcome{ID: q.ID, Kind: classify.KindInquiryTriage, Status: OutcomeSucceeded, Analysis: &analysis}
}

// fanOut runs fn for every id concurrently and returns the outcomes in input
// order. A unit's failure, panics included, never stops the others, and the
// caller's cancellation does not reach in-flight calls; each call is bounded
// by the per-call timeout instead.
func (s *Service) fanOut(ctx context.Context, kind classify.Kind, ids []uuid.UUID, fn func(context.Context, uuid.UUID) Outcome) []Outcome {
	ctx = context.WithoutCancel(ctx)
	outcomes := make([]Outcome, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = failed(id, kind, string(classify.ReasonTransport), fmt.Errorf("classifier panicked: %v", r))
				}
			}()
			outcomes[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// ScoreDeals scores every deal in ids and writes the health score of each
// success. Failed deals are left untouched.
func (s *Service) ScoreDeals(ctx context.Context, ids []uuid.UUID) []Outcome {
	batch := ulid.Make().String()
	log := s.logger.With(zap.String("batch", batch), zap.String("kind", string(classify.KindDealHealth)))
	log.Info("enrichment batch started", zap.Int("size", len(ids)))

	outcomes := s.fanOut(ctx, classify.KindDealHealth, ids, func(ctx context.Context, id uuid.UUID) Outcome {
		deal, err := s.store.GetDeal(ctx, id)
		if err != nil {
			return lookupFailed(id, classify.KindDealHealth, err)
		}
		return s.EnrichDeal(ctx, deal)
	})

	applyCtx := context.WithoutCancel(ctx)
	for i, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		score := *o.HealthScore
		_, err := s.store.UpdateDeal(applyCtx, o.ID, func(d *models.Deal) error {
			d.HealthScore = &score
			return nil
		})
		if err != nil {
			outcomes[i] = lookupFailed(o.ID, o.Kind, err)
		}
	}

	s.logBatch(log, outcomes)
	return outcomes
}

// TriageInquiries analyzes every inquiry in ids and holds each successful
// analysis as a pending suggestion. Inquiry statuses are not changed.
func (s *Service) TriageInquiries(ctx context.Context, ids []uuid.UUID) []Outcome {
	batch := ulid.Make().String()
	log := s.logger.With(zap.String("batch", batch), zap.String("kind", string(classify.KindInquiryTriage)))
	log.Info("enrichment batch started", zap.Int("size", len(ids)))

	outcomes := s.fanOut(ctx, classify.KindInquiryTriage, ids, func(ctx context.Context, id uuid.UUID) Outcome {
		q, err := s.store.GetInquiry(ctx, id)
		if err != nil {
			return lookupFailed(id, classify.KindInquiryTriage, err)
		}
		return s.TriageInquiry(ctx, q)
	})

	for _, o := range outcomes {
		if o.Succeeded() {
			s.suggestions.put(o.ID, *o.Analysis, batch)
		}
	}

	s.logBatch(log, outcomes)
	return outcomes
}

func (s *Service) logBatch(log *zap.Logger, outcomes []Outcome) {
	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
			continue
		}
		log.Warn("enrichment failed",
			zap.String("id", o.ID.String()),
			zap.String("reason", o.Reason),
			zap.Error(o.Err))
	}
	log.Info("enrichment batch finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(outcomes)-succeeded))
}
