// ABOUTME: Gmail inquiry import CLI commands
// ABOUTME: Handles the OAuth setup flow and importing inbound emails as inquiries
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/sync"
)

// GmailSetup carries what the Gmail commands need from the app config.
type GmailSetup struct {
	CredentialsPath string
	TokenPath       string
	Query           string
	MaxResults      int64
	// Tracker is the import log; nil skips bookkeeping.
	Tracker sync.Tracker
	Logger  *zap.Logger
}

// GmailAuthCommand runs the browser OAuth flow and stores the token.
func GmailAuthCommand(ctx context.Context, setup GmailSetup, args []string) error {
	fs := newFlagSet("inquiry gmail-auth")
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := sync.NewOAuthConfig(setup.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to get OAuth config: %w", err)
	}

	// Start local server for OAuth callback
	callbackChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: "localhost:8085", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	_, _ = fmt.Fprintln(stdout, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(stdout, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		if err := sync.SaveToken(setup.TokenPath, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "\n✓ Authenticated successfully\n")
		_, _ = fmt.Fprintf(stdout, "✓ Tokens saved to %s\n\n", setup.TokenPath)
		_, _ = fmt.Fprintln(stdout, "Run 'salesdesk inquiry import-gmail' to import inquiries.")
		return nil
	case err := <-errChan:
		return fmt.Errorf("OAuth flow failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ImportGmailCommand imports inbound Gmail messages as inquiries.
func ImportGmailCommand(ctx context.Context, svc *crm.Service, setup GmailSetup, args []string) error {
	fs := newFlagSet("inquiry import-gmail")
	query := fs.String("query", setup.Query, "Extra Gmail search terms")
	days := fs.Int("days", 0, "Look back this many days instead of since the last import")
	limit := fs.Int("limit", int(setup.MaxResults), "Maximum messages to examine")
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := sync.NewOAuthConfig(setup.CredentialsPath)
	if err != nil {
		return err
	}
	token, err := sync.LoadToken(setup.TokenPath)
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'salesdesk inquiry gmail-auth' first: %w", err)
	}
	source, err := sync.NewGmailClient(ctx, config, token)
	if err != nil {
		return err
	}

	opts := sync.ImportOptions{Query: *query, Limit: *limit}
	if *days > 0 {
		opts.Since = time.Now().AddDate(0, 0, -*days)
	}

	_, _ = fmt.Fprintln(stdout, "Importing Gmail inquiries...")
	sum, err := sync.NewImporter(source, svc, setup.Tracker, setup.Logger).Import(ctx, opts)
	if err != nil {
		return err
	}

	if sum.Imported == 0 {
		_, _ = fmt.Fprintln(stdout, "  ✓ No new inquiries (all up to date)")
	} else {
		_, _ = fmt.Fprintf(stdout, "  ✓ Imported %d new inquiries\n", sum.Imported)
	}
	_, _ = fmt.Fprintf(stdout, "  → Examined %d, already imported %d, skipped %d, failed %d\n",
		sum.Examined, sum.Existing, sum.Skipped, sum.Failed)
	return nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
