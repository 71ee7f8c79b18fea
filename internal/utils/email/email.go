package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// rupees formats paise for email bodies.
func rupees(paise int64) string {
	return fmt.Sprintf("%.2f INR", float64(paise)/100)
}

// SendObligationReminder warns a user that an upcoming obligation is not yet
// covered by its bucket.
func (s *Sender) SendObligationReminder(to, username, obligationName string, dueDate time.Time, amount, funded int64, riskLevel string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Upcoming payment: %s", obligationName)

	body := fmt.Sprintf(
		"Dear %s,\n\n", username,
	)
	body += fmt.Sprintf(
		"Your %s of %s is due on %s.\n"+
			"The linked bucket currently holds %s, leaving %s still to save.\n"+
			"Your cashflow risk level is %s.\n",
		obligationName, rupees(amount), dueDate.Format("2006-01-02"),
		rupees(funded), rupees(amount-funded), riskLevel,
	)
	body += "\nBest regards,\nGigFin Service"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendAdvanceDueNotice reminds a user about an advance nearing or past its
// due date.
func (s *Sender) SendAdvanceDueNotice(to, username string, dueDate time.Time, totalRepayment int64, isOverdue bool) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if isOverdue {
		e.Subject = "Overdue Advance Repayment Notification"
	} else {
		e.Subject = "Upcoming Advance Repayment Reminder"
	}

	body := fmt.Sprintf(
		"Dear %s,\n\n", username,
	)
	if isOverdue {
		body += fmt.Sprintf(
			"Your advance repayment of %s was due on %s and is now overdue.\n"+
				"New advances are blocked until it is repaid.\n",
			rupees(totalRepayment), dueDate.Format("2006-01-02"),
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that your advance repayment of %s is due on %s.\n"+
				"Please ensure sufficient funds are available in your buckets.\n",
			rupees(totalRepayment), dueDate.Format("2006-01-02"),
		)
	}
	body += "\nBest regards,\nGigFin Service"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
