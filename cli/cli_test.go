// ABOUTME: Tests for the CLI subcommands against an in-memory service
// ABOUTME: Output goes to a buffer so each command's summary line can be checked
package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

const triagePayload = `{"name":"Tom","potential_score":"medium","suggested_status":"in_progress","suggested_category":"Support","auto_reply":"We are on it.","human_required":true,"google_action":{"calendar_event":"no","sheet_log":"no","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`

func setupTestCLI(t *testing.T) (*crm.Service, *bytes.Buffer) {
	t.Helper()
	gw := classify.Func(func(ctx context.Context, req classify.Request) ([]byte, error) {
		if req.Kind == classify.KindInquiryTriage {
			return []byte(triagePayload), nil
		}
		return []byte(`{"health_score": 82}`), nil
	})
	svc := crm.New(store.New(store.NewMemoryBackend()), crm.WithGateway(gw))
	t.Cleanup(func() { _ = svc.Close() })

	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })
	return svc, &out
}

func TestContactCommands(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	require.NoError(t, AddContactCommand(ctx, svc, []string{"-first", "Ada", "-last", "Lovelace", "-email", "ada@example.com", "-tags", "vip, vip,math"}))
	assert.Contains(t, out.String(), "✓ Contact created: Ada Lovelace")

	err := AddContactCommand(ctx, svc, []string{"-first", "Other", "-last", "Ada", "-email", "ADA@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), "contact update")

	contacts, err := svc.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"vip", "math"}, contacts[0].Tags)

	require.NoError(t, UpdateContactCommand(ctx, svc, []string{"-phone", "555-0100", contacts[0].ID.String()}))
	updated, err := svc.GetContact(ctx, contacts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "Ada", updated.FirstName)

	out.Reset()
	require.NoError(t, ListContactsCommand(ctx, svc, []string{"-tag", "math"}))
	assert.Contains(t, out.String(), "ada@example.com")
	assert.Contains(t, out.String(), "1 contact(s)")
}

func TestDealCommands(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	require.NoError(t, AddContactCommand(ctx, svc, []string{"-first", "Ada", "-last", "Lovelace", "-email", "ada@example.com"}))
	require.NoError(t, AddDealCommand(ctx, svc, []string{"-name", "Engine", "-amount", "1250.50", "-stage", "Proposal", "-contacts", "ada@example.com", "-close", "2026-12-01"}))
	assert.Contains(t, out.String(), "Stage: Proposal")

	deals, err := svc.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	deal := deals[0]
	assert.Equal(t, int64(125050), deal.Amount)
	assert.Len(t, deal.ContactIDs, 1)

	require.Error(t, AddDealCommand(ctx, svc, []string{"-name", "Ghost", "-contacts", "nobody@example.com"}))

	require.NoError(t, MoveDealCommand(ctx, svc, []string{deal.ID.String(), "Closed", "-", "Won"}))
	moved, err := svc.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedWon, moved.Stage)

	require.NoError(t, UpdateDealCommand(ctx, svc, []string{"-probability", "90", deal.ID.String()}))
	updated, err := svc.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Probability)
	assert.Equal(t, "Engine", updated.Name)

	out.Reset()
	require.NoError(t, ListDealsCommand(ctx, svc, []string{"-stage", "closed won"}))
	assert.Contains(t, out.String(), "1 deal(s)")

	out.Reset()
	require.NoError(t, ReportCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "100.0%")

	require.Error(t, MoveDealCommand(ctx, svc, []string{deal.ID.String()}))
}

func TestEnrichDealsCommand(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	require.NoError(t, AddDealCommand(ctx, svc, []string{"-name", "Open deal"}))
	require.NoError(t, AddDealCommand(ctx, svc, []string{"-name", "Old deal", "-stage", "closed_lost"}))

	out.Reset()
	require.NoError(t, EnrichDealsCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "Scoring 1 deal(s)")
	assert.Contains(t, out.String(), "1 succeeded, 0 failed")

	deals, err := svc.ListDeals(ctx)
	require.NoError(t, err)
	for _, d := range deals {
		if d.Name == "Open deal" {
			require.NotNil(t, d.HealthScore)
			assert.Equal(t, 82, *d.HealthScore)
		} else {
			assert.Nil(t, d.HealthScore)
		}
	}
}

func TestTaskCommands(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	require.NoError(t, AddDealCommand(ctx, svc, []string{"-name", "Engine"}))
	deals, err := svc.ListDeals(ctx)
	require.NoError(t, err)
	dealID := deals[0].ID.String()

	require.NoError(t, AddTaskCommand(ctx, svc, []string{"-title", "Send proposal", "-deal", dealID, "-due", "2020-01-01"}))
	require.Error(t, AddTaskCommand(ctx, svc, []string{"-title", "Both", "-deal", dealID, "-contact", dealID}))

	out.Reset()
	require.NoError(t, ListTasksCommand(ctx, svc, []string{"-deal", dealID, "-overdue"}))
	assert.Contains(t, out.String(), "Send proposal")
	assert.Contains(t, out.String(), "1 task(s)")

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	require.NoError(t, TaskStatusCommand(ctx, svc, []string{tasks[0].ID.String(), "Done"}))
	assert.Contains(t, out.String(), "is now Done")

	out.Reset()
	require.NoError(t, ListTasksCommand(ctx, svc, []string{"-open"}))
	assert.Contains(t, out.String(), "0 task(s)")
}

func TestInquiryCommands(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	q, _, err := svc.ImportInquiry(ctx, models.Inquiry{Name: "Tom", Email: "tom@example.com", Message: "Help please"})
	require.NoError(t, err)

	require.NoError(t, TriageCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "1 succeeded, 0 failed")

	stored, err := svc.GetInquiry(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryNew, stored.Status)

	out.Reset()
	require.NoError(t, ListInquiriesCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "in_progress (medium)")

	require.NoError(t, ApplyCommand(ctx, svc, []string{q.ID.String()}))
	assert.Contains(t, out.String(), "We are on it.")
	stored, err = svc.GetInquiry(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryInProgress, stored.Status)

	require.Error(t, ApplyCommand(ctx, svc, []string{q.ID.String()}))
	require.Error(t, DismissCommand(ctx, svc, []string{q.ID.String()}))

	require.NoError(t, SetInquiryStatusCommand(ctx, svc, []string{q.ID.String(), "done"}))
	require.Error(t, SetInquiryStatusCommand(ctx, svc, []string{q.ID.String(), "closed"}))
}

func TestSeedAndVizCommands(t *testing.T) {
	ctx := context.Background()
	svc, out := setupTestCLI(t)

	require.NoError(t, SeedCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "✓ Seeded")

	out.Reset()
	require.NoError(t, SeedCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "already present")

	out.Reset()
	require.NoError(t, PipelineCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "Closed - Won")

	out.Reset()
	require.NoError(t, VizDashboardCommand(ctx, svc, nil))
	assert.Contains(t, out.String(), "SALESDESK DASHBOARD")

	out.Reset()
	require.NoError(t, VizPipelineCommand(ctx, svc, nil))
	assert.True(t, strings.Contains(out.String(), "digraph"))

	require.Error(t, VizPipelineCommand(ctx, svc, []string{"-format", "gif"}))
}
