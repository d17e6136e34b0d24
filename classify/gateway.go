// ABOUTME: Classification gateway contract for deal health scoring and inquiry triage
// ABOUTME: Defines requests, the Gateway interface and the failure taxonomy for calls
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/harperreed/salesdesk/models"
)

type Kind string

const (
	KindDealHealth    Kind = "deal_health"
	KindInquiryTriage Kind = "inquiry_triage"
)

// Request is what gets sent to the external classifier.
type Request struct {
	Kind          Kind              `json:"kind"`
	SubjectText   string            `json:"subject_text"`
	ContextFields map[string]string `json:"context_fields,omitempty"`
	Language      models.Language   `json:"language,omitempty"`
}

// Gateway returns the classifier's raw structured payload for a request.
// Callers validate the payload with ParseDealHealth or ParseTriage.
type Gateway interface {
	Classify(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to the Gateway interface.
type Func func(ctx context.Context, req Request) ([]byte, error)

func (f Func) Classify(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

type Reason string

const (
	ReasonTransport   Reason = "transport"
	ReasonTimeout     Reason = "timeout"
	ReasonSchema      Reason = "schema"
	ReasonUnavailable Reason = "unavailable"
)

// Failure is a classification call that produced no usable result.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("classification failed (%s): %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func schemaFailure(format string, args ...any) error {
	return &Failure{Reason: ReasonSchema, Err: fmt.Errorf(format, args...)}
}

// AsFailure classifies any gateway error into a Failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Failure{Reason: ReasonTimeout, Err: err}
	}
	return &Failure{Reason: ReasonTransport, Err: err}
}

// ForDeal builds a health-scoring request from a deal and its contacts.
func ForDeal(deal models.Deal, contacts []models.Contact) Request {
	fields := map[string]string{
		"name":        deal.Name,
		"company":     deal.Company,
		"stage":       deal.Stage.Label(),
		"amount":      models.FormatMoney(deal.Amount, deal.Currency),
		"probability": strconv.Itoa(deal.Probability),
		"priority":    string(deal.Priority),
		"last_update": deal.UpdatedAt.Format("2006-01-02"),
	}
	if deal.ExpectedCloseDate != nil {
		fields["expected_close_date"] = deal.ExpectedCloseDate.Format("2006-01-02")
	}
	if len(contacts) > 0 {
		names := make([]string, 0, len(contacts))
		for _, c := range contacts {
			names = append(names, c.FullName+" <"+c.Email+">")
		}
		fields["contacts"] = strings.Join(names, ", ")
	}
	return Request{
		Kind:          KindDealHealth,
		SubjectText:   deal.Name,
		ContextFields: fields,
	}
}

// ForInquiry builds a triage request from an inquiry.
func ForInquiry(q models.Inquiry) Request {
	phone := q.Phone
	if phone == "" {
		phone = "N/A"
	}
	return Request{
		Kind:        KindInquiryTriage,
		SubjectText: q.Message,
		ContextFields: map[string]string{
			"name":             q.Name,
			"email":            q.Email,
			"phone":            phone,
			"subject":          q.Subject,
			"service_interest": q.ServiceInterest,
		},
		Language: q.Language,
	}
}

const dealHealthInstructions = `Estimate the health of the sales deal below as an integer from 0 to 100.
100 means the deal is on track to close; 0 means it is effectively lost.
Weigh the stage, probability, expected close date and how recently it was updated.
Return ONLY a JSON object of the form {"health_score": <integer>}.`

const triageInstructions = `Analyze the customer inquiry below and return a JSON object with these fields:
- name: the sender's name.
- potential_score: "high" for new business in our core services, "medium" for collaborations or vague requests, "low" for support requests or spam.
- suggested_status: "in_progress" for leads, "done" for support or spam.
- suggested_category: a short category such as "New Lead - Web Dev", "Support Request" or "Collaboration".
- auto_reply: a short, polite reply written in the inquiry's language (%s). Offer a call for new leads; for support requests say someone will follow up.
- human_required: true when a person needs to follow up.
- google_action: an object with calendar_event, sheet_log, create_doc_summary and share_drive_folder (each "yes" or "no") plus notes for the team.
Return ONLY the JSON object, with no extra text or markdown.`

// Prompt renders the request as plain text for a language model.
func Prompt(req Request) string {
	var b strings.Builder
	switch req.Kind {
	case KindDealHealth:
		b.WriteString(dealHealthInstructions)
		b.WriteString("\n\nDeal:\n")
	default:
		lang := string(req.Language)
		if lang == "" {
			lang = string(models.LanguageEnglish)
		}
		fmt.Fprintf(&b, triageInstructions, lang)
		b.WriteString("\n\nInquiry:\n")
	}

	keys := make([]string, 0, len(req.ContextFields))
	for k := range req.ContextFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, req.ContextFields[k])
	}
	if req.Kind == KindInquiryTriage {
		fmt.Fprintf(&b, "- message: %s\n", req.SubjectText)
	}
	return b.String()
}
