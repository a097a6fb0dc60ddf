package templates

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/prevently-api/config"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}
func WithChanges(ch map[string]string) Option {
	return func(d *EmailData) { d.Changes = ch }
}
func WithMember(name, email string) Option {
	return func(d *EmailData) {
		d.MemberName = name
		d.MemberEmail = email
	}
}

func setLocation(d *EmailData, loc string) {
	if s := strings.TrimSpace(loc); s != "" {
		d.Location = s
	}
}

func WithLocation(loc string) Option {
	return func(d *EmailData) { setLocation(d, loc) }
}

func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		if g, err := r.Lookup(ctx, ip); err == nil {
			setLocation(d, FormatGeo(g))
		}
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,

		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		PrivacyURL:     cfg.PrivacyURL,
		UnsubscribeURL: cfg.UnsubscribeURL,

		DashboardURL: cfg.DashboardURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email, email, opts...))
}

func NewPasswordChangedData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, PasswordChanged, name, email, email, opts...))
}

// NewFamilyMemberAddedData is addressed to the member who was added; memberName is the user who added them.
func NewFamilyMemberAddedData(cfg *config.Config, name, email, memberName, memberEmail string, opts ...Option) map[string]any {
	opts = append([]Option{WithMember(memberName, memberEmail)}, opts...)
	return ToMap(NewBaseEmailData(cfg, FamilyMemberAdded, name, email, email, opts...))
}

func NewAccountDeactivatedData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, AccountDeactivated, name, email, email, opts...))
}
