package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/config"
	"github.com/oksasatya/prevently-api/pkg/helpers"
	"github.com/oksasatya/prevently-api/pkg/mailer"
	mailtpl "github.com/oksasatya/prevently-api/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	w := &worker{
		mail:     mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunRegion),
		resolver: mailtpl.IPAPIResolver{},
		logger:   logger,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			requeue, err := w.handle(context.Background(), msg.Body)
			if err != nil {
				helpers.LogWarn(logger, "email job failed", err, logrus.Fields{"requeue": requeue, "message_id": msg.MessageId})
				_ = msg.Nack(false, requeue)
				continue
			}
			_ = msg.Ack(false)
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type sender interface {
	Send(ctx context.Context, to, subject, text, html string, tags ...string) error
}

type worker struct {
	mail     sender
	resolver mailtpl.GeoResolver
	logger   *logrus.Logger
}

// handle renders and sends one job. Only delivery failures are worth a requeue.
func (w *worker) handle(ctx context.Context, body []byte) (requeue bool, err error) {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return false, fmt.Errorf("bad message: %w", err)
	}
	if job.To == "" {
		return false, fmt.Errorf("job without recipient")
	}

	helpers.EnsureRecipientAndEmail(&job)
	helpers.MapTypeToUniversal(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		helpers.LocalizeTimesIfPossible(lookupCtx, w.resolver, job.Data)
		cancel()

		s, t, h, rerr := mailtpl.Render(job.Template, job.Data)
		if rerr != nil {
			return false, fmt.Errorf("render %s: %w", job.Template, rerr)
		}
		subject, text, html = s, t, h
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	typ, _ := job.Data["Type"].(string)
	if err := w.mail.Send(sendCtx, job.To, subject, text, html, typ); err != nil {
		return true, fmt.Errorf("send: %w", err)
	}
	w.logger.WithFields(logrus.Fields{"to": job.To, "type": typ}).Info("email sent")
	return false, nil
}
