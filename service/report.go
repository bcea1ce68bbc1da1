package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type ReportStore interface {
	CountActiveUsers(ctx context.Context, since time.Time) (int64, error)
	CountMessages(ctx context.Context, since time.Time) (int64, error)
	CountUsersAtLimit(ctx context.Context, limit int) (int64, error)
}

type Mailer interface {
	Enabled() bool
	Send(subject, text, html string) error
}

type UsageReport struct {
	From        time.Time
	To          time.Time
	ActiveUsers int64
	Messages    int64
	UsersAtCap  int64
}

// UsageReportService mails a daily digest of chat activity to the operators.
type UsageReportService struct {
	store  ReportStore
	mailer Mailer
	log    logrus.FieldLogger
	md     goldmark.Markdown
	now    func() time.Time
}

func NewUsageReportService(store ReportStore, mailer Mailer, log logrus.FieldLogger) *UsageReportService {
	return &UsageReportService{
		store:  store,
		mailer: mailer,
		log:    log,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UsageReportService) Build(ctx context.Context) (*UsageReport, error) {
	to := s.now()
	from := to.Add(-24 * time.Hour)
	r := &UsageReport{From: from, To: to}

	var err error
	if r.ActiveUsers, err = s.store.CountActiveUsers(ctx, from); err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	if r.Messages, err = s.store.CountMessages(ctx, from); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if r.UsersAtCap, err = s.store.CountUsersAtLimit(ctx, FreeMessageLimit); err != nil {
		return nil, fmt.Errorf("count users at limit: %w", err)
	}
	return r, nil
}

func (r *UsageReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chat usage %s\n\n", r.To.Format("2006-01-02"))
	fmt.Fprintf(&b, "Window: %s to %s (UTC)\n\n", r.From.Format("2006-01-02 15:04"), r.To.Format("2006-01-02 15:04"))
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Active users | %d |\n", r.ActiveUsers)
	fmt.Fprintf(&b, "| Messages | %d |\n", r.Messages)
	fmt.Fprintf(&b, "| Free users at the %d message limit | %d |\n", FreeMessageLimit, r.UsersAtCap)
	return b.String()
}

func (s *UsageReportService) Render(r *UsageReport) (string, string, error) {
	text := r.Markdown()
	var html bytes.Buffer
	if err := s.md.Convert([]byte(text), &html); err != nil {
		return "", "", fmt.Errorf("render report: %w", err)
	}
	return text, html.String(), nil
}

// Run builds and mails the report. It is a no-op when no recipient is configured.
func (s *UsageReportService) Run(ctx context.Context) error {
	if !s.mailer.Enabled() {
		s.log.Debugf("[%s] usage report skipped, no recipients", "scheduled task")
		return nil
	}
	s.log.Infof("[%s] Start scheduled task UsageReport", "scheduled task")
	report, err := s.Build(ctx)
	if err != nil {
		s.log.Warnf("[%s] build usage report error, %s", "scheduled task", err)
		return err
	}
	text, html, err := s.Render(report)
	if err != nil {
		s.log.Warnf("[%s] render usage report error, %s", "scheduled task", err)
		return err
	}
	subject := "Chat usage report " + report.To.Format("2006-01-02")
	if err := s.mailer.Send(subject, text, html); err != nil {
		s.log.Warnf("[%s] send usage report error, %s", "scheduled task", err)
		return err
	}
	s.log.Infof("[%s] Finished scheduled task UsageReport", "scheduled task")
	return nil
}
