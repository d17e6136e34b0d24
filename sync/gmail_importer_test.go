// ABOUTME: Tests for the Gmail inquiry importer against a scripted mailbox
// ABOUTME: Covers mapping, language detection, dedup and import log bookkeeping
package sync

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/db"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

type fakeMailbox struct {
	user     string
	pages    [][]string
	messages map[string]*gmail.Message
	queries  []string
	listErr  error
}

func (f *fakeMailbox) UserEmail(ctx context.Context) (string, error) { return f.user, nil }

func (f *fakeMailbox) List(ctx context.Context, query, pageToken string, max int64) ([]string, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	f.queries = append(f.queries, query)
	page := 0
	if pageToken != "" {
		page = int(pageToken[0] - '0')
	}
	next := ""
	if page+1 < len(f.pages) {
		next = string(rune('0' + page + 1))
	}
	return f.pages[page], next, nil
}

func (f *fakeMailbox) Get(ctx context.Context, id string) (*gmail.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

type memoryTracker struct {
	seen     map[string]uuid.UUID
	statuses []string
	synced   bool
	last     *time.Time
}

func newMemoryTracker() *memoryTracker {
	return &memoryTracker{seen: make(map[string]uuid.UUID)}
}

func (m *memoryTracker) Seen(ctx context.Context, service, sourceID string) (bool, error) {
	_, ok := m.seen[sourceID]
	return ok, nil
}

func (m *memoryTracker) Record(ctx context.Context, service, sourceID, kind string, recordID uuid.UUID) error {
	m.seen[sourceID] = recordID
	return nil
}

func (m *memoryTracker) SetStatus(ctx context.Context, service, status, errMsg string) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memoryTracker) MarkSynced(ctx context.Context, service, token string) error {
	m.synced = true
	return nil
}

func (m *memoryTracker) State(ctx context.Context, service string) (*db.SyncState, error) {
	if m.last == nil {
		return nil, nil
	}
	return &db.SyncState{Service: service, LastSyncTime: m.last}, nil
}

func inboundMail(id, from, subject, body string) *gmail.Message {
	return &gmail.Message{
		Id:      id,
		Snippet: "snippet of " + id,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "desk@studio.com"},
				{Name: "Subject", Value: subject},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>html</p>"))}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))}},
			},
		},
	}
}

func newMailbox() *fakeMailbox {
	return &fakeMailbox{
		user:  "desk@studio.com",
		pages: [][]string{{"m1", "m2"}, {"m3", "m4"}},
		messages: map[string]*gmail.Message{
			"m1": inboundMail("m1", "Tom Lee <tom@example.com>", "Pricing for a new site", "How much would a redesign cost?"),
			"m2": inboundMail("m2", "noa@example.co.il", "הצעת מחיר", "שלום, אשמח להצעה"),
			"m3": inboundMail("m3", "noreply@shop.com", "Your receipt", "Thanks for buying"),
			"m4": {Id: "m4", Snippet: "Can we talk next week?", Payload: &gmail.MessagePart{
				MimeType: "text/html",
				Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "Dana <dana@example.com>"},
					{Name: "Subject", Value: "Partnership"},
				},
			}},
		},
	}
}

func newSink(t *testing.T) *crm.Service {
	t.Helper()
	svc := crm.New(store.New(store.NewMemoryBackend()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestImportCreatesInquiries(t *testing.T) {
	ctx := context.Background()
	svc := newSink(t)
	box := newMailbox()
	tracker := newMemoryTracker()

	sum, err := NewImporter(box, svc, tracker, nil).Import(ctx, ImportOptions{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if sum.Examined != 4 || sum.Imported != 3 || sum.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if !tracker.synced || tracker.statuses[0] != db.SyncRunning {
		t.Errorf("expected running then synced, got %v synced=%v", tracker.statuses, tracker.synced)
	}

	inquiries, err := svc.ListInquiries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byRef := make(map[string]models.Inquiry)
	for _, q := range inquiries {
		byRef[q.SourceRef] = q
	}

	tom := byRef["gmail:m1"]
	if tom.Name != "Tom Lee" || tom.Email != "tom@example.com" || tom.Message != "How much would a redesign cost?" {
		t.Errorf("unexpected mapping %+v", tom)
	}
	if tom.Language != models.LanguageEnglish || tom.Status != models.InquiryNew {
		t.Errorf("expected new english inquiry, got %s/%s", tom.Language, tom.Status)
	}
	if noa := byRef["gmail:m2"]; noa.Language != models.LanguageHebrew || noa.Name != "noa" {
		t.Errorf("expected hebrew inquiry named after the mailbox, got %+v", noa)
	}
	if dana := byRef["gmail:m4"]; dana.Message != "Can we talk next week?" {
		t.Errorf("expected snippet fallback, got %q", dana.Message)
	}
}

func TestImportSkipsAlreadyImported(t *testing.T) {
	ctx := context.Background()
	svc := newSink(t)
	box := newMailbox()

	if _, err := ImportGmailInquiries(ctx, svc, box, ""); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	sum, err := ImportGmailInquiries(ctx, svc, box, "label:leads")
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if sum.Imported != 0 || sum.Existing != 3 {
		t.Errorf("expected all existing on re-run, got %+v", sum)
	}
	inquiries, _ := svc.ListInquiries(ctx)
	if len(inquiries) != 3 {
		t.Errorf("expected 3 inquiries, got %d", len(inquiries))
	}
	if got := box.queries[len(box.queries)-1]; got[:len("label:leads")] != "label:leads" {
		t.Errorf("expected base query prefix, got %q", got)
	}
}

func TestImportUsesLastSyncAndLimit(t *testing.T) {
	last := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tracker := newMemoryTracker()
	tracker.last = &last
	box := newMailbox()

	sum, err := NewImporter(box, newSink(t), tracker, nil).Import(context.Background(), ImportOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if sum.Examined != 1 {
		t.Errorf("expected limit to stop after 1, got %+v", sum)
	}
	if want := "in:inbox -from:me after:2026/02/01 -in:spam -in:trash"; box.queries[0] != want {
		t.Errorf("query = %q, want %q", box.queries[0], want)
	}
}

func TestImportListFailureMarksError(t *testing.T) {
	tracker := newMemoryTracker()
	box := newMailbox()
	box.listErr = errors.New("quota exceeded")

	if _, err := NewImporter(box, newSink(t), tracker, nil).Import(context.Background(), ImportOptions{}); err == nil {
		t.Fatal("expected error")
	}
	if got := tracker.statuses[len(tracker.statuses)-1]; got != db.SyncError {
		t.Errorf("expected error status, got %q", got)
	}
	if tracker.synced {
		t.Error("failed run must not mark synced")
	}
}

func TestDetectLanguage(t *testing.T) {
	if detectLanguage("Hello שלום") != models.LanguageHebrew {
		t.Error("expected hebrew")
	}
	if detectLanguage("Hello 123") != models.LanguageEnglish {
		t.Error("expected english")
	}
}
