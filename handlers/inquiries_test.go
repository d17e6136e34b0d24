// ABOUTME: Tests for inquiry tools, resources, prompts and server registration
// ABOUTME: Triage runs against a scripted classifier
package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/models"
)

const doneTriage = `{"name":"Tom","potential_score":"high","suggested_status":"done","suggested_category":"Sales","auto_reply":"Thanks, a quote is on its way.","human_required":false,"google_action":{"calendar_event":"no","sheet_log":"yes","create_doc_summary":"no","share_drive_folder":"no","notes":""}}`

func triageGateway() classify.Gateway {
	return classify.Func(func(ctx context.Context, req classify.Request) ([]byte, error) {
		return []byte(doneTriage), nil
	})
}

func TestTriageThenApply(t *testing.T) {
	svc := setupTestService(t, triageGateway())
	q, _, err := svc.ImportInquiry(context.Background(), models.Inquiry{Name: "Tom", Email: "tom@example.com", Message: "Pricing please"})
	if err != nil {
		t.Fatalf("ImportInquiry failed: %v", err)
	}
	handler := NewInquiryHandlers(svc)

	_, batch, err := handler.TriageInquiries(context.Background(), nil, TriageInquiriesInput{})
	if err != nil {
		t.Fatalf("TriageInquiries failed: %v", err)
	}
	if batch.Succeeded != 1 {
		t.Fatalf("Expected 1 triaged inquiry, got %+v", batch)
	}

	stored, err := svc.GetInquiry(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetInquiry failed: %v", err)
	}
	if stored.Status != models.InquiryNew {
		t.Errorf("Triage must not change status, got %q", stored.Status)
	}

	_, pending, err := handler.ListSuggestions(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("ListSuggestions failed: %v", err)
	}
	if len(pending.Suggestions) != 1 || pending.Suggestions[0].SuggestedStatus != "done" {
		t.Fatalf("Unexpected suggestions: %+v", pending.Suggestions)
	}

	_, applied, err := handler.ApplySuggestion(context.Background(), nil, ApplySuggestionInput{InquiryID: q.ID.String()})
	if err != nil {
		t.Fatalf("ApplySuggestion failed: %v", err)
	}
	if applied.Status != "done" {
		t.Errorf("Expected done, got %q", applied.Status)
	}

	_, dismissed, err := handler.DismissSuggestion(context.Background(), nil, DismissSuggestionInput{InquiryID: q.ID.String()})
	if err != nil {
		t.Fatalf("DismissSuggestion failed: %v", err)
	}
	if dismissed.Dismissed {
		t.Error("Applied suggestion should already be gone")
	}
}

func TestReadResource(t *testing.T) {
	svc := seedQueryData(t)
	handler := NewResourceHandlers(svc)

	res, err := handler.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://deals"}})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	var deals []models.Deal
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &deals); err != nil {
		t.Fatalf("Resource is not JSON: %v", err)
	}
	if len(deals) != 3 {
		t.Errorf("Expected 3 deals, got %d", len(deals))
	}

	res, err = handler.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://deals/" + deals[0].ID.String()}})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if !strings.Contains(res.Contents[0].Text, deals[0].Name) {
		t.Errorf("Expected deal %q in resource", deals[0].Name)
	}

	for _, uri := range []string{"http://deals", "crm://companies", "crm://deals/nope"} {
		if _, err := handler.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}); err == nil {
			t.Errorf("Expected error for %s", uri)
		}
	}
}

func TestGetPrompt(t *testing.T) {
	svc := seedQueryData(t)
	handler := NewPromptHandlers(svc)

	res, err := handler.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "pipeline-review"}})
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "Proposal: 2 deals") {
		t.Errorf("Prompt missing stage counts: %s", text)
	}

	inquiries, err := svc.ListInquiries(context.Background())
	if err != nil {
		t.Fatalf("ListInquiries failed: %v", err)
	}
	for _, q := range inquiries {
		if q.Language != models.LanguageHebrew {
			continue
		}
		res, err := handler.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
			Name:      "inquiry-reply",
			Arguments: map[string]string{"inquiry_id": q.ID.String()},
		}})
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		if !strings.Contains(res.Messages[0].Content.(*mcp.TextContent).Text, "in Hebrew") {
			t.Error("Expected a Hebrew reply prompt")
		}
	}

	if _, err := handler.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-analysis"}}); err == nil {
		t.Error("Expected error without deal_id")
	}
}

func TestGenerateGraph(t *testing.T) {
	handler := NewVizHandlers(seedQueryData(t))

	_, out, err := handler.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "pipeline"})
	if err != nil {
		t.Fatalf("GenerateGraph failed: %v", err)
	}
	if !strings.Contains(out.DOTSource, "Website redesign") || out.EdgeCount == 0 {
		t.Errorf("Unexpected graph: %+v", out)
	}

	if _, _, err := handler.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "contact"}); err == nil {
		t.Error("Expected error without entity_id")
	}
}

func TestNewMCPServer(t *testing.T) {
	if NewMCPServer(setupTestService(t, nil), "test") == nil {
		t.Fatal("Expected a server")
	}
}
