// ABOUTME: Gmail API access for the inquiry importer
// ABOUTME: Wraps gmail.Service behind the small MessageSource interface the importer uses
package sync

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const maxGmailResults = 500 // Gmail API max per page

// MessageSource is the slice of the Gmail API the importer needs.
type MessageSource interface {
	UserEmail(ctx context.Context) (string, error)
	List(ctx context.Context, query, pageToken string, max int64) (ids []string, next string, err error)
	Get(ctx context.Context, id string) (*gmail.Message, error)
}

// NewGmailClient creates a Gmail API client authorized with token.
func NewGmailClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*GmailSource, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailSource{svc: service}, nil
}

// GmailSource reads the authorized user's mailbox.
type GmailSource struct {
	svc *gmail.Service
}

func (g *GmailSource) UserEmail(ctx context.Context) (string, error) {
	profile, err := g.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get user profile: %w", err)
	}
	return profile.EmailAddress, nil
}

func (g *GmailSource) List(ctx context.Context, query, pageToken string, max int64) ([]string, string, error) {
	if max <= 0 || max > maxGmailResults {
		max = maxGmailResults
	}
	call := g.svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch messages: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, resp.NextPageToken, nil
}

func (g *GmailSource) Get(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return msg, nil
}
