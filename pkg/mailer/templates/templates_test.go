package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/prevently-api/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:      "Prevently",
		CompanyName:  "Prevently AI",
		SupportURL:   "mailto:support@example.com",
		DashboardURL: "https://app.example.com/dashboard",
	}
}

func TestRenderEveryType(t *testing.T) {
	cfg := testConfig()
	at := WithTime(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC))

	tests := []struct {
		name    string
		data    map[string]any
		subject string
		body    string
	}{
		{name: Welcome, data: NewWelcomeData(cfg, "Ann", "ann@example.com", at), subject: "Welcome to Prevently", body: "100 XP"},
		{name: PasswordChanged, data: NewPasswordChangedData(cfg, "Ann", "ann@example.com", at, WithIP("1.2.3.4")), subject: "Your password was changed", body: "1.2.3.4"},
		{name: FamilyMemberAdded, data: NewFamilyMemberAddedData(cfg, "Bob", "bob@example.com", "Ann Lee", "ann@example.com", at), subject: "Ann Lee added you to their family circle", body: "ann@example.com"},
		{name: AccountDeactivated, data: NewAccountDeactivatedData(cfg, "Ann", "ann@example.com", at), subject: "Your account has been deactivated", body: "01 May 2024, 10:30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			subject, text, html, err := Render(Universal, tc.data)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if strings.TrimSpace(subject) != tc.subject {
				t.Fatalf("expected subject %q, got %q", tc.subject, subject)
			}
			if !strings.Contains(text, tc.body) {
				t.Fatalf("expected text to contain %q, got:\n%s", tc.body, text)
			}
			if !strings.Contains(html, tc.body) {
				t.Fatalf("expected html to contain %q", tc.body)
			}
		})
	}
}

func TestHTMLEscapesNames(t *testing.T) {
	data := NewWelcomeData(testConfig(), "<script>x</script>", "ann@example.com")
	_, _, html, err := Render(Universal, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>x</script>") {
		t.Fatal("expected name to be escaped in html")
	}
}

func TestFormatGeo(t *testing.T) {
	if got := FormatGeo(Geo{City: "Bandung", Country: "Indonesia"}); got != "Bandung, Indonesia" {
		t.Fatalf("unexpected geo %q", got)
	}
	if got := FormatGeo(Geo{}); got != "" {
		t.Fatalf("expected empty geo, got %q", got)
	}
}

func TestSubjectIsSingleLine(t *testing.T) {
	data := NewFamilyMemberAddedData(testConfig(), "Bob", "bob@example.com", "Ann\r\nBcc: evil@example.com", "ann@example.com")
	subject, _, _, err := Render(Universal, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.ContainsAny(subject, "\r\n") {
		t.Fatalf("subject must not contain line breaks: %q", subject)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, _, err := Render("missing", nil); err == nil {
		t.Fatal("expected an error for a missing template")
	}
}
