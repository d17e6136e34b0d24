// ABOUTME: Tests for CRM data models
// ABOUTME: Covers stage parsing, task relations, health bands and formatting helpers
package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"prospecting", StageProspecting},
		{"Needs Analysis", StageNeedsAnalysis},
		{"needs-analysis", StageNeedsAnalysis},
		{"Closed - Won", StageClosedWon},
		{"Closed-Lost", StageClosedLost},
		{"closed_lost", StageClosedLost},
		{"  On Hold ", StageOnHold},
		{"NEGOTIATION", StageNegotiation},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStage(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	for _, in := range []string{"NotAStage", "", "closed", "Closed - Maybe", "proposal!"} {
		_, err := ParseStage(in)
		assert.ErrorIs(t, err, ErrValidation, in)
	}
}

func TestStageLabelsCoverOrder(t *testing.T) {
	require.Len(t, Stages, 8)
	for i, s := range Stages {
		assert.True(t, s.Valid())
		assert.Equal(t, i, StageIndex(s))
		parsed, err := ParseStage(s.Label())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.True(t, StageClosedWon.Closed())
	assert.False(t, StageOnHold.Closed())
}

func TestTaskRelationJSON(t *testing.T) {
	dealID := uuid.New()
	task := Task{
		Meta:    Meta{ID: uuid.New()},
		Title:   "Follow up",
		Status:  TaskTodo,
		Related: DealRef{ID: dealID},
	}

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Deal", raw["relatedType"])
	assert.Equal(t, dealID.String(), raw["relatedId"])
	assert.Equal(t, "Follow up", raw["title"])

	var back Task
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, DealRef{ID: dealID}, back.Related)
	assert.Equal(t, task.ID, back.ID)
}

func TestTaskRelationRejectsBadType(t *testing.T) {
	data := []byte(`{"title":"x","status":"todo","relatedType":"Company","relatedId":"` + uuid.NewString() + `"}`)
	var task Task
	err := json.Unmarshal(data, &task)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseTaskStatus(t *testing.T) {
	for in, want := range map[string]TaskStatus{
		"To Do":       TaskTodo,
		"todo":        TaskTodo,
		"In Progress": TaskInProgress,
		"done":        TaskDone,
		"Archived":    TaskArchived,
	} {
		got, err := ParseTaskStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTaskStatus("blocked")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHealthBand(t *testing.T) {
	assert.Equal(t, HealthHealthy, HealthBand(100))
	assert.Equal(t, HealthHealthy, HealthBand(75))
	assert.Equal(t, HealthAttention, HealthBand(74))
	assert.Equal(t, HealthAttention, HealthBand(40))
	assert.Equal(t, HealthAtRisk, HealthBand(39))
	assert.Equal(t, HealthAtRisk, HealthBand(0))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"vip", "Qualified"}, NormalizeTags([]string{" vip", "Qualified", "vip", ""}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "USD 1,250.00", FormatMoney(125000, ""))
	assert.Equal(t, "ILS 0.05", FormatMoney(5, "ILS"))
	assert.Equal(t, "USD 1,000,000.99", FormatMoney(100000099, "USD"))
}

func TestErrorTaxonomy(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, NotFound("deal", id), ErrNotFound)
	assert.ErrorIs(t, &ConflictError{Existing: Contact{Email: "a@x.com"}}, ErrConflict)
	assert.ErrorIs(t, Invalid("email", "required"), ErrValidation)
	assert.Contains(t, NotFound("deal", id).Error(), id.String())
}
