// ABOUTME: Tests for deal and task MCP tool handlers
// ABOUTME: Covers creation, stage moves, batch scoring and task listing
package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/models"
)

func healthGateway(scores map[string]string) classify.Gateway {
	return classify.Func(func(ctx context.Context, req classify.Request) ([]byte, error) {
		if payload, ok := scores[req.SubjectText]; ok {
			return []byte(payload), nil
		}
		return nil, errors.New("connection refused")
	})
}

func TestCreateDeal(t *testing.T) {
	svc := setupTestService(t, nil)
	contacts := NewContactHandlers(svc)
	addContact(t, contacts, "Jane", "Smith", "jane@acme.com")
	handler := NewDealHandlers(svc)

	_, out, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{
		Name:              "Enterprise License Deal",
		Amount:            5000000,
		Stage:             "proposal",
		ContactEmails:     []string{"Jane@Acme.com"},
		ExpectedCloseDate: "2024-09-30",
	})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	if out.Stage != "Proposal" {
		t.Errorf("Expected stage Proposal, got %q", out.Stage)
	}
	if out.Currency != models.DefaultCurrency {
		t.Errorf("Expected default currency, got %q", out.Currency)
	}
	if len(out.ContactIDs) != 1 {
		t.Errorf("Expected 1 contact, got %v", out.ContactIDs)
	}
	if out.ExpectedCloseDate == nil || *out.ExpectedCloseDate != "2024-09-30" {
		t.Errorf("Unexpected close date: %v", out.ExpectedCloseDate)
	}
}

func TestCreateDealUnknownContact(t *testing.T) {
	handler := NewDealHandlers(setupTestService(t, nil))

	_, _, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Name: "Orphan", ContactEmails: []string{"ghost@example.com"}})
	if err == nil {
		t.Fatal("Expected error for unknown contact email")
	}
}

func TestMoveDealHandler(t *testing.T) {
	handler := NewDealHandlers(setupTestService(t, nil))
	_, deal, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Name: "Website"})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	_, moved, err := handler.MoveDeal(context.Background(), nil, MoveDealInput{ID: deal.ID, Stage: "Closed - Won"})
	if err != nil {
		t.Fatalf("MoveDeal failed: %v", err)
	}
	if moved.Stage != "Closed - Won" {
		t.Errorf("Expected Closed - Won, got %q", moved.Stage)
	}

	_, _, err = handler.MoveDeal(context.Background(), nil, MoveDealInput{ID: deal.ID, Stage: "Sold"})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestUpdateDealHandler(t *testing.T) {
	handler := NewDealHandlers(setupTestService(t, nil))
	_, deal, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Name: "Website", Amount: 1000})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	amount := int64(2500)
	_, out, err := handler.UpdateDeal(context.Background(), nil, UpdateDealInput{ID: deal.ID, Amount: &amount, Priority: "High"})
	if err != nil {
		t.Fatalf("UpdateDeal failed: %v", err)
	}
	if out.Amount != 2500 || out.Priority != "High" {
		t.Errorf("Update not applied: %+v", out)
	}
	if out.Name != "Website" {
		t.Errorf("Name should be untouched, got %q", out.Name)
	}
}

func TestScoreDealsReportsEachDeal(t *testing.T) {
	svc := setupTestService(t, healthGateway(map[string]string{"Good": `{"health_score": 81}`}))
	handler := NewDealHandlers(svc)
	for _, name := range []string{"Good", "Bad"} {
		if _, _, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Name: name}); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}
	}

	_, out, err := handler.ScoreDeals(context.Background(), nil, ScoreDealsInput{})
	if err != nil {
		t.Fatalf("ScoreDeals failed: %v", err)
	}
	if out.Succeeded != 1 || out.Failed != 1 {
		t.Fatalf("Expected 1 success and 1 failure, got %+v", out)
	}
	for _, o := range out.Outcomes {
		if o.Status == "succeeded" && (o.HealthScore == nil || *o.HealthScore != 81) {
			t.Errorf("Unexpected score: %+v", o)
		}
		if o.Status == "failed" && o.Reason != "transport" {
			t.Errorf("Expected transport failure, got %+v", o)
		}
	}

	if _, _, err := handler.ScoreDeals(context.Background(), nil, ScoreDealsInput{IDs: []string{"nope"}}); err == nil {
		t.Error("Expected error for malformed id")
	}
}

func TestTaskHandlers(t *testing.T) {
	svc := setupTestService(t, nil)
	_, deal, err := NewDealHandlers(svc).CreateDeal(context.Background(), nil, CreateDealInput{Name: "Website"})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}
	handler := NewTaskHandlers(svc)

	_, task, err := handler.AddTask(context.Background(), nil, AddTaskInput{
		Title:       "Send contract",
		DueDate:     "2020-01-01",
		RelatedType: "Deal",
		RelatedID:   deal.ID,
	})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if !task.Overdue {
		t.Error("Expected a past due date to be overdue")
	}
	if task.Status != "To Do" {
		t.Errorf("Expected To Do, got %q", task.Status)
	}

	_, done, err := handler.SetTaskStatus(context.Background(), nil, SetTaskStatusInput{ID: task.ID, Status: "done"})
	if err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}
	if done.Overdue {
		t.Error("Done tasks are never overdue")
	}

	_, list, err := handler.ListTasks(context.Background(), nil, ListTasksInput{RelatedType: "Deal", RelatedID: deal.ID, OpenOnly: true})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(list.Tasks) != 0 {
		t.Errorf("Expected no open tasks, got %d", len(list.Tasks))
	}

	_, _, err = handler.AddTask(context.Background(), nil, AddTaskInput{Title: "Nowhere", RelatedType: "Company", RelatedID: deal.ID})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
