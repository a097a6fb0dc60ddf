package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/config"
	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/pkg/mailer"
	tpl "github.com/oksasatya/prevently-api/pkg/mailer/templates"
)

// Notifier enqueues account emails for the email worker. A nil queue or disabled sending makes it a no-op.
type Notifier struct {
	Queue  EmailQueue
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewNotifier(q EmailQueue, cfg *config.Config, logger *logrus.Logger) *Notifier {
	return &Notifier{Queue: q, Cfg: cfg, Logger: logger}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.Queue != nil && n.Cfg != nil && n.Cfg.MailSendEnabled
}

func (n *Notifier) publish(ctx context.Context, to string, data map[string]any) {
	job := mailer.EmailJob{To: to, Template: tpl.Universal, Data: data}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := n.Queue.PublishJSON(c, job); err != nil && n.Logger != nil {
		n.Logger.WithError(err).WithFields(logrus.Fields{"to": to, "type": data["Type"]}).Warn("enqueue email failed")
	}
}

func requestOpts(at time.Time, meta RequestMeta) []tpl.Option {
	return []tpl.Option{tpl.WithTime(at), tpl.WithIP(meta.IP), tpl.WithUserAgent(meta.UserAgent)}
}

func (n *Notifier) Welcome(ctx context.Context, u *entity.User, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	n.publish(ctx, u.Email, tpl.NewWelcomeData(n.Cfg, u.FirstName, u.Email, requestOpts(u.CreatedAt, meta)...))
}

func (n *Notifier) PasswordChanged(ctx context.Context, u *entity.User, at time.Time, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	n.publish(ctx, u.Email, tpl.NewPasswordChangedData(n.Cfg, u.FirstName, u.Email, requestOpts(at, meta)...))
}

// FamilyMemberAdded tells member that by linked them.
func (n *Notifier) FamilyMemberAdded(ctx context.Context, member, by *entity.User, at time.Time) {
	if !n.enabled() || !member.Preferences.Notifications.Email {
		return
	}
	n.publish(ctx, member.Email, tpl.NewFamilyMemberAddedData(n.Cfg, member.FirstName, member.Email, by.FullName(), by.Email, tpl.WithTime(at)))
}

func (n *Notifier) AccountDeactivated(ctx context.Context, u *entity.User, at time.Time, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	n.publish(ctx, u.Email, tpl.NewAccountDeactivatedData(n.Cfg, u.FirstName, u.Email, requestOpts(at, meta)...))
}
