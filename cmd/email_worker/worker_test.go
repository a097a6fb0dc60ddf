package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/pkg/mailer"
	mailtpl "github.com/oksasatya/prevently-api/pkg/mailer/templates"
)

type sent struct {
	to, subject, text, html string
	tags                    []string
}

type stubSender struct {
	got []sent
	err error
}

func (s *stubSender) Send(_ context.Context, to, subject, text, html string, tags ...string) error {
	s.got = append(s.got, sent{to, subject, text, html, tags})
	return s.err
}

type noGeo struct{}

func (noGeo) Lookup(context.Context, string) (mailtpl.Geo, error) {
	return mailtpl.Geo{}, mailtpl.ErrNonPublicIP
}

func newWorker(s sender) *worker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &worker{mail: s, resolver: noGeo{}, logger: logger}
}

func body(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleRendersTypedJob(t *testing.T) {
	s := &stubSender{}
	w := newWorker(s)
	job := mailer.EmailJob{To: "ada@example.com", Template: "welcome", Data: map[string]any{"Name": "Ada", "AppName": "Prevently"}}

	requeue, err := w.handle(context.Background(), body(t, job))
	if err != nil || requeue {
		t.Fatalf("unexpected result requeue=%v err=%v", requeue, err)
	}
	if len(s.got) != 1 {
		t.Fatalf("expected one send, got %d", len(s.got))
	}
	m := s.got[0]
	if m.to != "ada@example.com" || m.subject == "" || !strings.Contains(m.html, "Ada") {
		t.Fatalf("unexpected message %+v", m)
	}
	if len(m.tags) != 1 || m.tags[0] != "welcome" {
		t.Fatalf("expected welcome tag, got %v", m.tags)
	}
}

func TestHandleFailures(t *testing.T) {
	cases := []struct {
		name    string
		raw     []byte
		sendErr error
		requeue bool
	}{
		{"bad json", []byte("{"), nil, false},
		{"no recipient", []byte(`{"template":"welcome"}`), nil, false},
		{"unknown template", []byte(`{"to":"a@b.com","template":"nope"}`), nil, false},
		{"delivery failure", []byte(`{"to":"a@b.com","subject":"hi","text":"plain"}`), errors.New("mailgun 502"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorker(&stubSender{err: tc.sendErr})
			requeue, err := w.handle(context.Background(), tc.raw)
			if err == nil {
				t.Fatal("expected an error")
			}
			if requeue != tc.requeue {
				t.Fatalf("expected requeue=%v, got %v", tc.requeue, requeue)
			}
		})
	}
}
