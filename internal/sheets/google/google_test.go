package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		_, err := credentialsFromEnv(context.Background())
		if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("inline json wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist")
		got, err := credentialsFromEnv(context.Background())
		if err != nil || string(got) != `{"type":"service_account"}` {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("application credentials file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{"x":1}`), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
		got, err := credentialsFromEnv(context.Background())
		if err != nil || string(got) != `{"x":1}` {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))
		if _, err := credentialsFromEnv(context.Background()); err == nil {
			t.Fatal("expected read error")
		}
	})
}

func TestRowsWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.Rows(context.Background(), "Products"); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestQuoteTab(t *testing.T) {
	tests := map[string]string{
		"Products":      "'Products'",
		"2025 Invoices": "'2025 Invoices'",
		"Bob's events":  "'Bob''s events'",
	}
	for in, want := range tests {
		if got := quoteTab(in); got != want {
			t.Errorf("quoteTab(%q) = %q, want %q", in, got, want)
		}
	}
}
