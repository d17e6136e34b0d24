// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Contact, Deal, Task, Inquiry and the AnalysisResult produced by triage
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Meta is the bookkeeping every stored record carries.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetMeta gives the store access to a record's id and timestamps.
func (m *Meta) GetMeta() *Meta { return m }

// Record is implemented by every entity the store persists.
type Record interface {
	GetMeta() *Meta
}

type ContactSource string

const (
	SourceInbound  ContactSource = "Inbound"
	SourceOutbound ContactSource = "Outbound"
	SourceReferral ContactSource = "Referral"
	SourceAd       ContactSource = "Ad"
	SourceOther    ContactSource = "Other"
)

type ContactStatus string

const (
	ContactNew      ContactStatus = "New"
	ContactActive   ContactStatus = "Active"
	ContactInactive ContactStatus = "Inactive"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type Contact struct {
	Meta
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	FullName  string        `json:"fullName"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Company   string        `json:"company,omitempty"`
	Title     string        `json:"title,omitempty"`
	Source    ContactSource `json:"source"`
	Status    ContactStatus `json:"status"`
	OwnerID   string        `json:"ownerId,omitempty"`
	Tags      []string      `json:"tags"`
	Notes     string        `json:"notes,omitempty"`
}

type Deal struct {
	Meta
	Name              string      `json:"name"`
	Company           string      `json:"company,omitempty"`
	Amount            int64       `json:"amount"` // in cents
	Currency          string      `json:"currency"`
	Stage             Stage       `json:"stage"`
	Probability       int         `json:"probability"`
	ExpectedCloseDate *time.Time  `json:"expectedCloseDate,omitempty"`
	ContactIDs        []uuid.UUID `json:"contactIds"`
	OwnerID           string      `json:"ownerId,omitempty"`
	Priority          Priority    `json:"priority"`
	HealthScore       *int        `json:"healthScore,omitempty"`
}

type Inquiry struct {
	Meta
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone,omitempty"`
	Subject         string        `json:"subject"`
	Message         string        `json:"message"`
	ServiceInterest string        `json:"service_interest"`
	Language        Language      `json:"language"`
	Status          InquiryStatus `json:"status"`
	SourceRef       string        `json:"source_ref,omitempty"`
}

type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageEnglish Language = "en"
)

type InquiryStatus string

const (
	InquiryNew        InquiryStatus = "new"
	InquiryInProgress InquiryStatus = "in_progress"
	InquiryDone       InquiryStatus = "done"
)

type PotentialScore string

const (
	PotentialHigh   PotentialScore = "high"
	PotentialMedium PotentialScore = "medium"
	PotentialLow    PotentialScore = "low"
)

// AnalysisResult is the triage suggestion for an inquiry. It is never stored
// on the inquiry itself; only the suggested status is written, and only when
// someone applies it.
type AnalysisResult struct {
	Name              string         `json:"name"`
	PotentialScore    PotentialScore `json:"potential_score"`
	SuggestedStatus   InquiryStatus  `json:"suggested_status"`
	SuggestedCategory string         `json:"suggested_category"`
	AutoReply         string         `json:"auto_reply"`
	HumanRequired     bool           `json:"human_required"`
	GoogleAction      GoogleAction   `json:"google_action"`
}

// GoogleAction lists follow-up actions in Google Workspace, each "yes" or "no".
type GoogleAction struct {
	CalendarEvent    string `json:"calendar_event"`
	SheetLog         string `json:"sheet_log"`
	CreateDocSummary string `json:"create_doc_summary"`
	ShareDriveFolder string `json:"share_drive_folder"`
	Notes            string `json:"notes"`
}

const DefaultCurrency = "USD"

// NormalizeEmail lowercases and trims an address for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ComposeFullName derives a contact's display name from its parts.
func ComposeFullName(first, last string) string {
	return first + " " + last
}

// NormalizeTags trims tags and drops blanks and repeats, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// FormatMoney renders an amount in cents, e.g. "USD 1,250.00".
func FormatMoney(cents int64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, b.String(), cents%100)
}

func ValidContactSource(s ContactSource) bool {
	switch s {
	case SourceInbound, SourceOutbound, SourceReferral, SourceAd, SourceOther:
		return true
	}
	return false
}

func ValidContactStatus(s ContactStatus) bool {
	switch s {
	case ContactNew, ContactActive, ContactInactive:
		return true
	}
	return false
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidInquiryStatus(s InquiryStatus) bool {
	switch s {
	case InquiryNew, InquiryInProgress, InquiryDone:
		return true
	}
	return false
}

func ValidLanguage(l Language) bool {
	return l == LanguageHebrew || l == LanguageEnglish
}

// Health bands used when presenting a deal's health score.
const (
	HealthHealthy   = "healthy"
	HealthAttention = "attention"
	HealthAtRisk    = "at_risk"
)

// HealthBand buckets a 0-100 health score.
func HealthBand(score int) string {
	switch {
	case score < 40:
		return HealthAtRisk
	case score < 75:
		return HealthAttention
	default:
		return HealthHealthy
	}
}
