// ABOUTME: Strict validation of classifier payloads
// ABOUTME: Anything missing, mistyped, out of range or unexpected is a schema failure
package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/harperreed/salesdesk/models"
)

// ParseDealHealth accepts a bare JSON integer or {"health_score": n}, with n in 0..100.
func ParseDealHealth(raw []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, schemaFailure("health score is not valid JSON: %v", err)
	}
	if err := expectEOF(dec); err != nil {
		return 0, err
	}

	var num json.Number
	switch t := v.(type) {
	case json.Number:
		num = t
	case map[string]any:
		if len(t) != 1 {
			return 0, schemaFailure("health score object must only contain health_score")
		}
		n, ok := t["health_score"].(json.Number)
		if !ok {
			return 0, schemaFailure("health_score must be an integer")
		}
		num = n
	default:
		return 0, schemaFailure("health score must be an integer, got %T", v)
	}

	score, err := num.Int64()
	if err != nil {
		return 0, schemaFailure("health score %s is not an integer", num)
	}
	if score < 0 || score > 100 {
		return 0, schemaFailure("health score %d out of range 0-100", score)
	}
	return int(score), nil
}

type triageWire struct {
	Name              *string           `json:"name"`
	PotentialScore    *string           `json:"potential_score"`
	SuggestedStatus   *string           `json:"suggested_status"`
	SuggestedCategory *string           `json:"suggested_category"`
	AutoReply         *string           `json:"auto_reply"`
	HumanRequired     *bool             `json:"human_required"`
	GoogleAction      *googleActionWire `json:"google_action"`
}

type googleActionWire struct {
	CalendarEvent    *string `json:"calendar_event"`
	SheetLog         *string `json:"sheet_log"`
	CreateDocSummary *string `json:"create_doc_summary"`
	ShareDriveFolder *string `json:"share_drive_folder"`
	Notes            *string `json:"notes"`
}

// ParseTriage validates an inquiry triage payload.
func ParseTriage(raw []byte) (models.AnalysisResult, error) {
	var w triageWire
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return models.AnalysisResult{}, schemaFailure("triage payload: %v", err)
	}
	if err := expectEOF(dec); err != nil {
		return models.AnalysisResult{}, err
	}

	missing := func(field string) (models.AnalysisResult, error) {
		return models.AnalysisResult{}, schemaFailure("triage payload missing %s", field)
	}
	switch {
	case w.Name == nil:
		return missing("name")
	case w.PotentialScore == nil:
		return missing("potential_score")
	case w.SuggestedStatus == nil:
		return missing("suggested_status")
	case w.SuggestedCategory == nil:
		return missing("suggested_category")
	case w.AutoReply == nil:
		return missing("auto_reply")
	case w.HumanRequired == nil:
		return missing("human_required")
	case w.GoogleAction == nil:
		return missing("google_action")
	}

	ga := w.GoogleAction
	flags := []struct {
		name  string
		value *string
	}{
		{"google_action.calendar_event", ga.CalendarEvent},
		{"google_action.sheet_log", ga.SheetLog},
		{"google_action.create_doc_summary", ga.CreateDocSummary},
		{"google_action.share_drive_folder", ga.ShareDriveFolder},
	}
	for _, f := range flags {
		if f.value == nil {
			return missing(f.name)
		}
		if *f.value != "yes" && *f.value != "no" {
			return models.AnalysisResult{}, schemaFailure("%s must be yes or no, got %q", f.name, *f.value)
		}
	}
	if ga.Notes == nil {
		return missing("google_action.notes")
	}

	potential := models.PotentialScore(*w.PotentialScore)
	switch potential {
	case models.PotentialHigh, models.PotentialMedium, models.PotentialLow:
	default:
		return models.AnalysisResult{}, schemaFailure("potential_score %q is not high, medium or low", *w.PotentialScore)
	}

	status := models.InquiryStatus(*w.SuggestedStatus)
	if status != models.InquiryInProgress && status != models.InquiryDone {
		return models.AnalysisResult{}, schemaFailure("suggested_status %q is not in_progress or done", *w.SuggestedStatus)
	}

	return models.AnalysisResult{
		Name:              *w.Name,
		PotentialScore:    potential,
		SuggestedStatus:   status,
		SuggestedCategory: *w.SuggestedCategory,
		AutoReply:         *w.AutoReply,
		HumanRequired:     *w.HumanRequired,
		GoogleAction: models.GoogleAction{
			CalendarEvent:    *ga.CalendarEvent,
			SheetLog:         *ga.SheetLog,
			CreateDocSummary: *ga.CreateDocSummary,
			ShareDriveFolder: *ga.ShareDriveFolder,
			Notes:            *ga.Notes,
		},
	}, nil
}

func expectEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return schemaFailure("unexpected data after JSON payload")
	}
	return nil
}
