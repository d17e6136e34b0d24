// ABOUTME: Builds the MCP server with every CRM tool, resource and prompt registered
// ABOUTME: Shared by the mcp subcommand and the handler tests
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
)

// NewMCPServer registers the CRM tools, resources and prompts on a new server.
func NewMCPServer(svc *crm.Service, version string) *mcp.Server {
	contacts := NewContactHandlers(svc)
	deals := NewDealHandlers(svc)
	tasks := NewTaskHandlers(svc)
	inquiries := NewInquiryHandlers(svc)
	query := NewQueryHandlers(svc)
	vizHandlers := NewVizHandlers(svc)
	resources := NewResourceHandlers(svc)
	prompts := NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "salesdesk",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact; fails with the existing contact when the email is already taken",
	}, contacts.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search for contacts by name, email, or company",
	}, contacts.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact's information",
	}, contacts.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_contact_interaction",
		Description: "Append a dated interaction note to a contact",
	}, contacts.LogContactInteraction)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal, optionally linked to existing contacts by email",
	}, deals.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update an existing deal's information including stage and amount",
	}, deals.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to any pipeline stage",
	}, deals.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_deals",
		Description: "Score deal health with the classifier; reports success or failure per deal",
	}, deals.ScoreDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Add a task linked to a deal or a contact",
	}, tasks.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally for one deal or contact",
	}, tasks.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_task_status",
		Description: "Change a task's status",
	}, tasks.SetTaskStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "triage_inquiries",
		Description: "Classify inquiries and hold the results as suggestions for review",
	}, inquiries.TriageInquiries)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_suggestions",
		Description: "List triage suggestions awaiting review",
	}, inquiries.ListSuggestions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_suggestion",
		Description: "Apply a triage suggestion, setting the inquiry status",
	}, inquiries.ApplySuggestion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dismiss_suggestion",
		Description: "Drop a triage suggestion without changing the inquiry",
	}, inquiries.DismissSuggestion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_crm",
		Description: "Universal query tool for flexible filtering across contacts, deals, tasks and inquiries",
	}, query.QueryCRM)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of the pipeline or of one contact",
	}, vizHandlers.GenerateGraph)

	for _, r := range []struct{ uri, name, desc string }{
		{"crm://contacts", "contacts", "All contacts"},
		{"crm://deals", "deals", "All deals"},
		{"crm://inquiries", "inquiries", "All inquiries"},
		{"crm://pipeline", "pipeline", "Deals grouped by stage"},
		{"crm://report", "report", "Pipeline report with win rate and monthly won value"},
	} {
		server.AddResource(&mcp.Resource{
			URI:         r.uri,
			Name:        r.name,
			Description: r.desc,
			MIMEType:    "application/json",
		}, resources.ReadResource)
	}
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://contacts/{id}",
		Name:        "contact",
		MIMEType:    "application/json",
	}, resources.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://deals/{id}",
		Name:        "deal",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	for _, p := range Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	return server
}
