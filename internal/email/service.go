package email

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/triage-api/internal/config"
	"github.com/jwalitptl/triage-api/internal/model"
)

type Service interface {
	SendReminderDigest(to string, reminders []model.Reminder) error
}

type service struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.NotificationConfig) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.FromAddress,
	}
}

func (s *service) SendReminderDigest(to string, reminders []model.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d follow-up reminder(s) due:\n\n", len(reminders))
	for _, r := range reminders {
		fmt.Fprintf(&b, "  case %s, due %s\n", r.CaseID, r.ReminderTime.Format("2006-01-02 15:04"))
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Follow-up reminders due")
	m.SetBody("text/plain", b.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send reminder digest: %w", err)
	}
	return nil
}
