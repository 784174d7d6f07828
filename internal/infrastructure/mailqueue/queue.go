// Package mailqueue delivers templated emails in the background. Enqueue never
// blocks the caller and never reports delivery failures back to it.
package mailqueue

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"github.com/dmca-notices/internal/infrastructure/smtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//go:embed templates/*.tmpl
var assets embed.FS

var messagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dmca_mail_messages_total",
		Help: "Mail messages by outcome (sent, failed, dropped)",
	},
	[]string{"result"},
)

// Message is one queued email. Template names an embedded body template,
// e.g. "emails.dmca".
type Message struct {
	Template string
	Data     any
	From     string
	To       string
	Subject  string
}

// Queue is a bounded in-process mail queue drained by a fixed set of workers.
type Queue struct {
	mailer    smtp.Mailer
	templates map[string]*template.Template
	jobs      chan Message
	workers   int
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New parses the embedded body templates. size bounds the number of pending
// messages; workers is the number of concurrent senders.
func New(mailer smtp.Mailer, size, workers int) (*Queue, error) {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	entries, err := assets.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read mail templates: %w", err)
	}
	templates := make(map[string]*template.Template, len(entries))
	for _, e := range entries {
		ref := "emails." + strings.TrimSuffix(e.Name(), ".tmpl")
		t, err := template.ParseFS(assets, "templates/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", ref, err)
		}
		templates[ref] = t
	}
	return &Queue{
		mailer:    mailer,
		templates: templates,
		jobs:      make(chan Message, size),
		workers:   workers,
	}, nil
}

// Start launches the workers.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Enqueue schedules one message. When the queue is full, closed, or the
// template is unknown the message is dropped and logged.
func (q *Queue) Enqueue(templateRef string, data any, from, to, subject string) {
	if _, ok := q.templates[templateRef]; !ok {
		slog.Error("mail dropped: unknown template", "template", templateRef, "to", to)
		messagesTotal.WithLabelValues("dropped").Inc()
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		slog.Warn("mail dropped: queue closed", "template", templateRef, "to", to)
		messagesTotal.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case q.jobs <- Message{Template: templateRef, Data: data, From: from, To: to, Subject: subject}:
	default:
		slog.Warn("mail dropped: queue full", "template", templateRef, "to", to)
		messagesTotal.WithLabelValues("dropped").Inc()
	}
}

// Close stops accepting messages and waits for queued ones to be sent or for
// ctx to end, whichever comes first.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for msg := range q.jobs {
		q.send(msg)
	}
}

func (q *Queue) send(msg Message) {
	var body bytes.Buffer
	if err := q.templates[msg.Template].Execute(&body, msg.Data); err != nil {
		slog.Error("mail render failed", "template", msg.Template, "to", msg.To, "err", err)
		messagesTotal.WithLabelValues("failed").Inc()
		return
	}
	if err := q.mailer.SendEmail(msg.From, msg.To, msg.Subject, body.String()); err != nil {
		slog.Warn("mail delivery failed", "template", msg.Template, "to", msg.To, "err", err)
		messagesTotal.WithLabelValues("failed").Inc()
		return
	}
	messagesTotal.WithLabelValues("sent").Inc()
}
