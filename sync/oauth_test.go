package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
)

func TestOAuthConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	config, err := NewOAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewOAuthConfig: %v", err)
	}
	if len(config.Scopes) != 1 || config.Scopes[0] != gmail.GmailReadonlyScope {
		t.Errorf("expected only the gmail read-only scope, got %v", config.Scopes)
	}
	if config.RedirectURL != callbackURL {
		t.Errorf("unexpected redirect %s", config.RedirectURL)
	}
}

func TestOAuthConfigFromCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"file-id","client_secret":"file-secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(creds), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := NewOAuthConfig(path)
	if err != nil {
		t.Fatalf("NewOAuthConfig: %v", err)
	}
	if config.ClientID != "file-id" {
		t.Errorf("expected client id from file, got %s", config.ClientID)
	}
}

func TestOAuthConfigMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	if _, err := NewOAuthConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "abc", RefreshToken: "def", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	if err := SaveToken(path, token); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if loaded.AccessToken != "abc" || loaded.RefreshToken != "def" || !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("token mismatch: %+v", loaded)
	}
}
