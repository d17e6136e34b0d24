// ABOUTME: Pipeline report figures derived from the current deals
// ABOUTME: Open and weighted pipeline, win rate, average won deal and won value by month
package crm

import (
	"context"
	"sort"

	"github.com/harperreed/salesdesk/models"
)

type MonthValue struct {
	Month  string `json:"month"` // YYYY-MM
	Amount int64  `json:"amount"`
}

type PipelineReport struct {
	OpenPipelineValue     int64            `json:"openPipelineValue"`
	WeightedPipelineValue int64            `json:"weightedPipelineValue"`
	WonValue              int64            `json:"wonValue"`
	WonCount              int              `json:"wonCount"`
	LostCount             int              `json:"lostCount"`
	WinRate               float64          `json:"winRate"` // percent
	AverageWonDeal        int64            `json:"averageWonDeal"`
	WonByMonth            []MonthValue     `json:"wonByMonth"`
	Stages                []StageAggregate `json:"stages"`
}

func (s *Service) Report(ctx context.Context) (PipelineReport, error) {
	deals, err := s.store.ListDeals(ctx)
	if err != nil {
		return PipelineReport{}, err
	}
	return buildReport(deals), nil
}

func buildReport(deals []models.Deal) PipelineReport {
	r := PipelineReport{
		Stages:     summarize(deals),
		WonByMonth: []MonthValue{},
	}

	byMonth := map[string]int64{}
	var weighted int64
	for _, d := range deals {
		switch d.Stage {
		case models.StageClosedWon:
			r.WonCount++
			r.WonValue += d.Amount
			byMonth[d.UpdatedAt.UTC().Format("2006-01")] += d.Amount
		case models.StageClosedLost:
			r.LostCount++
		default:
			r.OpenPipelineValue += d.Amount
			weighted += d.Amount * int64(d.Probability)
		}
	}

	r.WeightedPipelineValue = weighted / 100

	if decided := r.WonCount + r.LostCount; decided > 0 {
		r.WinRate = float64(r.WonCount) / float64(decided) * 100
	}
	if r.WonCount > 0 {
		r.AverageWonDeal = r.WonValue / int64(r.WonCount)
	}

	for month, amount := range byMonth {
		r.WonByMonth = append(r.WonByMonth, MonthValue{Month: month, Amount: amount})
	}
	sort.Slice(r.WonByMonth, func(i, j int) bool {
		return r.WonByMonth[i].Month < r.WonByMonth[j].Month
	})
	return r
}
