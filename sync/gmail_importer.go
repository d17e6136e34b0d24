// ABOUTME: Gmail importer that turns inbound customer emails into inquiries
// ABOUTME: Dedups on the gmail message id and records progress in the import log
package sync

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/salesdesk/db"
	"github.com/harperreed/salesdesk/models"
)

const (
	gmailService      = "gmail"
	defaultImportDays = 30
	sourceRefPrefix   = "gmail:"
)

// InquirySink stores imported inquiries; crm.Service satisfies it.
type InquirySink interface {
	ImportInquiry(ctx context.Context, q models.Inquiry) (models.Inquiry, bool, error)
}

// Tracker is the import bookkeeping; db.ImportLog satisfies it.
type Tracker interface {
	Seen(ctx context.Context, service, sourceID string) (bool, error)
	Record(ctx context.Context, service, sourceID, kind string, recordID uuid.UUID) error
	SetStatus(ctx context.Context, service, status, errMsg string) error
	MarkSynced(ctx context.Context, service, token string) error
	State(ctx context.Context, service string) (*db.SyncState, error)
}

// ImportOptions narrows an import run.
type ImportOptions struct {
	Query string    // extra Gmail search terms
	Since time.Time // zero means since the last sync, else the last 30 days
	Limit int       // max messages examined, 0 for no limit
}

// Summary counts what an import run did.
type Summary struct {
	Examined int
	Imported int
	Existing int
	Skipped  int
	Failed   int
}

type Importer struct {
	source  MessageSource
	sink    InquirySink
	tracker Tracker
	logger  *zap.Logger
}

// NewImporter wires a message source to an inquiry sink. tracker may be nil.
func NewImporter(source MessageSource, sink InquirySink, tracker Tracker, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{source: source, sink: sink, tracker: tracker, logger: logger}
}

// ImportGmailInquiries runs a one-off import of the messages matching query.
func ImportGmailInquiries(ctx context.Context, sink InquirySink, source MessageSource, query string) (Summary, error) {
	return NewImporter(source, sink, nil, nil).Import(ctx, ImportOptions{Query: query})
}

// Import fetches matching messages and imports each inquiry-looking one.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (Summary, error) {
	var sum Summary
	im.setStatus(ctx, db.SyncRunning, "")

	since, err := im.since(ctx, opts.Since)
	if err != nil {
		return sum, im.fail(ctx, err)
	}
	userEmail, err := im.source.UserEmail(ctx)
	if err != nil {
		return sum, im.fail(ctx, err)
	}

	query := BuildInquiryQuery(opts.Query, since)
	im.logger.Info("gmail import started", zap.String("query", query))

	pageToken := ""
	for {
		ids, next, err := im.source.List(ctx, query, pageToken, 0)
		if err != nil {
			return sum, im.fail(ctx, err)
		}
		for _, id := range ids {
			if opts.Limit > 0 && sum.Examined >= opts.Limit {
				return im.finish(ctx, sum)
			}
			sum.Examined++
			im.processMessage(ctx, id, userEmail, &sum)
		}
		if next == "" {
			break
		}
		pageToken = next
	}
	return im.finish(ctx, sum)
}

func (im *Importer) processMessage(ctx context.Context, id, userEmail string, sum *Summary) {
	if im.tracker != nil {
		seen, err := im.tracker.Seen(ctx, gmailService, id)
		if err != nil {
			im.logger.Warn("import log lookup failed", zap.String("message", id), zap.Error(err))
		} else if seen {
			sum.Existing++
			return
		}
	}

	msg, err := im.source.Get(ctx, id)
	if err != nil {
		sum.Failed++
		im.logger.Warn("failed to fetch message", zap.String("message", id), zap.Error(err))
		return
	}
	if ok, reason := IsInquiryEmail(msg, userEmail); !ok {
		sum.Skipped++
		im.logger.Debug("message skipped", zap.String("message", id), zap.String("reason", reason))
		return
	}

	q, created, err := im.sink.ImportInquiry(ctx, messageToInquiry(msg))
	if err != nil {
		sum.Failed++
		im.logger.Warn("failed to import inquiry", zap.String("message", id), zap.Error(err))
		return
	}
	if !created {
		sum.Existing++
	} else {
		sum.Imported++
	}
	if im.tracker != nil {
		if err := im.tracker.Record(ctx, gmailService, id, "inquiry", q.ID); err != nil {
			im.logger.Warn("failed to record import", zap.String("message", id), zap.Error(err))
		}
	}
}

func (im *Importer) since(ctx context.Context, since time.Time) (time.Time, error) {
	if !since.IsZero() {
		return since, nil
	}
	if im.tracker != nil {
		state, err := im.tracker.State(ctx, gmailService)
		if err != nil {
			return time.Time{}, err
		}
		if state != nil && state.LastSyncTime != nil {
			return *state.LastSyncTime, nil
		}
	}
	return time.Now().AddDate(0, 0, -defaultImportDays), nil
}

func (im *Importer) finish(ctx context.Context, sum Summary) (Summary, error) {
	if im.tracker != nil {
		if err := im.tracker.MarkSynced(ctx, gmailService, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return sum, err
		}
	}
	im.logger.Info("gmail import finished",
		zap.Int("examined", sum.Examined),
		zap.Int("imported", sum.Imported),
		zap.Int("existing", sum.Existing),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

func (im *Importer) fail(ctx context.Context, err error) error {
	im.setStatus(ctx, db.SyncError, err.Error())
	return fmt.Errorf("gmail import failed: %w", err)
}

func (im *Importer) setStatus(ctx context.Context, status, errMsg string) {
	if im.tracker == nil {
		return
	}
	if err := im.tracker.SetStatus(ctx, gmailService, status, errMsg); err != nil {
		im.logger.Warn("failed to update sync status", zap.Error(err))
	}
}

func messageToInquiry(msg *gmail.Message) models.Inquiry {
	headers := parseHeaders(msg.Payload)
	name, email, _ := ExtractEmailAddress(headers["From"])
	if name == "" && email != "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	subject := strings.TrimSpace(headers["Subject"])
	body := strings.TrimSpace(plainTextBody(msg.Payload))
	if body == "" {
		body = strings.TrimSpace(msg.Snippet)
	}

	return models.Inquiry{
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   body,
		Language:  detectLanguage(subject + " " + body),
		Status:    models.InquiryNew,
		SourceRef: sourceRefPrefix + msg.Id,
	}
}

// plainTextBody returns the first text/plain part, depth first.
func plainTextBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, "text/plain") && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		}
		if err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		if text := plainTextBody(child); text != "" {
			return text
		}
	}
	return ""
}

func detectLanguage(text string) models.Language {
	for _, r := range text {
		if unicode.Is(unicode.Hebrew, r) && unicode.IsLetter(r) {
			return models.LanguageHebrew
		}
	}
	return models.LanguageEnglish
}
