package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	// Company info
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`

	// URLs
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`
	PrivacyURL     string `json:"PrivacyURL"`
	UnsubscribeURL string `json:"UnsubscribeURL"`

	// Action URLs
	DashboardURL string `json:"DashboardURL"`

	// Additional data
	IP            string            `json:"IP"`
	Time          string            `json:"Time"`
	TimeAt        time.Time         `json:"TimeAt"`
	UserAgent     string            `json:"UserAgent"`
	Location      string            `json:"Location"`
	Changes       map[string]string `json:"Changes"`

	// Family linkage
	MemberName  string `json:"MemberName"`
	MemberEmail string `json:"MemberEmail"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

// FuncMaps share one source so html and text templates agree.

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"default":    defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// Email types rendered by the universal template.
const (
	Welcome            = "welcome"
	PasswordChanged    = "password_changed"
	FamilyMemberAdded  = "family_member_added"
	AccountDeactivated = "account_deactivated"
)

// Universal is the template that renders every email type.
const Universal = "universal"

// Types lists the email types the universal template knows about.
var Types = []string{Welcome, PasswordChanged, FamilyMemberAdded, AccountDeactivated}

type executor interface {
	Execute(w io.Writer, data any) error
}

// parsed templates by file name; the embedded FS never changes at runtime
var cache sync.Map

func lookup(filename string, isHTML bool) (executor, error) {
	if t, ok := cache.Load(filename); ok {
		return t.(executor), nil
	}
	var (
		t   executor
		err error
	)
	if isHTML {
		t, err = htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
	} else {
		t, err = texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", filename, err)
	}
	actual, _ := cache.LoadOrStore(filename, t)
	return actual.(executor), nil
}

func renderFile(filename string, isHTML bool, data any) (string, error) {
	t, err := lookup(filename, isHTML)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
// The subject is collapsed to a single line since it ends up in a mail header.
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	subject = strings.Join(strings.Fields(subject), " ")
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}
