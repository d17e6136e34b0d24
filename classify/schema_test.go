// ABOUTME: Tests for strict classifier payload validation
// ABOUTME: Covers accepted shapes and every rejection path for both schemas
package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/salesdesk/models"
)

func requireSchemaFailure(t *testing.T, err error) {
	t.Helper()
	var f *Failure
	require.True(t, errors.As(err, &f), "expected Failure, got %v", err)
	assert.Equal(t, ReasonSchema, f.Reason)
}

func TestParseDealHealth(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bare integer", `85`, 85},
		{"zero", `0`, 0},
		{"upper bound", ` 100 `, 100},
		{"object form", `{"health_score": 42}`, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDealHealth([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDealHealthRejects(t *testing.T) {
	for _, raw := range []string{
		`101`,
		`-1`,
		`85.5`,
		`"85"`,
		`true`,
		`null`,
		`{"health_score": "high"}`,
		`{"health_score": 50, "reason": "x"}`,
		`{"score": 50}`,
		`50 60`,
		`not json`,
		``,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseDealHealth([]byte(raw))
			requireSchemaFailure(t, err)
		})
	}
}

const validTriage = `{
	"name": "Dana Levi",
	"potential_score": "high",
	"suggested_status": "in_progress",
	"suggested_category": "New Lead - Web Dev",
	"auto_reply": "Thanks, let's schedule a call.",
	"human_required": true,
	"google_action": {
		"calendar_event": "yes",
		"sheet_log": "yes",
		"create_doc_summary": "no",
		"share_drive_folder": "no",
		"notes": "Budget mentioned"
	}
}`

func TestParseTriage(t *testing.T) {
	got, err := ParseTriage([]byte(validTriage))
	require.NoError(t, err)
	assert.Equal(t, "Dana Levi", got.Name)
	assert.Equal(t, models.PotentialHigh, got.PotentialScore)
	assert.Equal(t, models.InquiryInProgress, got.SuggestedStatus)
	assert.True(t, got.HumanRequired)
	assert.Equal(t, "yes", got.GoogleAction.CalendarEvent)
	assert.Equal(t, "Budget mentioned", got.GoogleAction.Notes)
}

func TestParseTriageRejects(t *testing.T) {
	tests := map[string]string{
		"missing field":  `{"name":"x","potential_score":"high","suggested_status":"done","suggested_category":"c","auto_reply":"r","google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"wrong type":     `{"name":"x","potential_score":"high","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":"yes","google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"bad potential":  `{"name":"x","potential_score":"huge","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":false,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"status new":     `{"name":"x","potential_score":"low","suggested_status":"new","suggested_category":"c","auto_reply":"r","human_required":false,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"bad flag":       `{"name":"x","potential_score":"low","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":false,"google_action":{"calendar_event":"maybe","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"missing nested": `{"name":"x","potential_score":"low","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":false,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","notes":""}}`,
		"unknown field":  `{"name":"x","potential_score":"low","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":false,"confidence":0.9,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"null name":      `{"name":null,"potential_score":"low","suggested_status":"done","suggested_category":"c","auto_reply":"r","human_required":false,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`,
		"array":          `[]`,
		"trailing data":  validTriage + `{}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTriage([]byte(raw))
			requireSchemaFailure(t, err)
		})
	}
}
