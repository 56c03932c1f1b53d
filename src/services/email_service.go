package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/config"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
)

// ReconciliationAlert describes a document EIMS accepted that could not be stored.
type ReconciliationAlert struct {
	Kind           string // "invoice" or "receipt"
	TripID         string
	DocumentNumber int64
	InvoiceCounter int64
	Reference      string // IRN or RRN
	Cause          error
	OccurredAt     time.Time
}

func (a ReconciliationAlert) subject() string {
	return fmt.Sprintf("[EIMS] Reconciliation required: %s %s", a.Kind, a.Reference)
}

func (a ReconciliationAlert) body() string {
	cause := "unknown"
	if a.Cause != nil {
		cause = a.Cause.Error()
	}
	return fmt.Sprintf(`EIMS acknowledged a %s that could not be stored locally.

Trip:            %s
Reference:       %s
Document number: %d
Invoice counter: %d
Occurred at:     %s
Cause:           %s

Record the document manually before the next submission, otherwise the local
sequence will fall behind the gateway.`,
		a.Kind, a.TripID, a.Reference, a.DocumentNumber, a.InvoiceCounter,
		a.OccurredAt.Format(time.RFC3339), cause)
}

// AlertService notifies operators about events that need a human.
type AlertService interface {
	SendReconciliationAlert(alert ReconciliationAlert) error
	SendSequenceSyncNotice(result SyncResult) error
}

func syncNoticeBody(r SyncResult) string {
	return fmt.Sprintf(`A manual sequence sync was performed.

Previous local counters: document %d, invoice counter %d
Target counters:         document %d, invoice counter %d
Placeholders created:    %d`,
		r.Previous.DocumentNumber, r.Previous.InvoiceCounter,
		r.Target.DocumentNumber, r.Target.InvoiceCounter, r.Created)
}

const syncNoticeSubject = "[EIMS] Invoice sequence synchronized"

func NewAlertService() AlertService {
	if config.Cfg == nil {
		logger.L.Error("Configuration (config.Cfg) is nil. Alert service will default to mock.")
		return &MockAlertService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing alert service", "provider", provider)

	if config.Cfg.AlertEmail == "" && provider != "mock" && provider != "" {
		logger.L.Warn("ALERT_EMAIL is not set. Falling back to MockAlertService.")
		return &MockAlertService{}
	}

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockAlertService.")
			return &MockAlertService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunAlertService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			recipient:   config.Cfg.AlertEmail,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockAlertService.")
			return &MockAlertService{}
		}
		return &SMTPAlertService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
			Recipient:    config.Cfg.AlertEmail,
		}
	default:
		logger.L.Info("Defaulting to MockAlertService.")
		return &MockAlertService{}
	}
}

type SMTPAlertService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	Recipient    string
}

func (s *SMTPAlertService) SendReconciliationAlert(alert ReconciliationAlert) error {
	return s.send(alert.subject(), alert.body())
}

func (s *SMTPAlertService) SendSequenceSyncNotice(result SyncResult) error {
	return s.send(syncNoticeSubject, syncNoticeBody(result))
}

func (s *SMTPAlertService) send(subject, body string) error {
	header := map[string]string{
		"From":         s.SenderEmail,
		"To":           s.Recipient,
		"Subject":      subject,
		"MIME-version": "1.0",
		"Content-Type": "text/plain; charset=\"UTF-8\"",
	}
	var message strings.Builder
	for k, v := range header {
		fmt.Fprintf(&message, "%s: %s\r\n", k, v)
	}
	message.WriteString("\r\n" + body)

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{s.Recipient}, []byte(message.String())); err != nil {
		logger.L.Error("Failed to send alert via SMTP", "error", err, "to", s.Recipient, "subject", subject)
		return fmt.Errorf("failed to send alert via SMTP: %w", err)
	}
	logger.L.Info("Alert sent via SMTP", "to", s.Recipient, "subject", subject)
	return nil
}

type MailgunAlertService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	recipient   string
}

func (s *MailgunAlertService) SendReconciliationAlert(alert ReconciliationAlert) error {
	return s.send(alert.subject(), alert.body(), "reconciliation-required")
}

func (s *MailgunAlertService) SendSequenceSyncNotice(result SyncResult) error {
	return s.send(syncNoticeSubject, syncNoticeBody(result), "sequence-sync")
}

func (s *MailgunAlertService) send(subject, body, tag string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, subject, body, s.recipient)
	message.AddTag(tag)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send alert via Mailgun", "error", err, "to", s.recipient, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Alert sent via Mailgun", "to", s.recipient, "id", id, "tag", tag)
	return nil
}

// MockAlertService logs alerts instead of sending them and keeps them for inspection.
type MockAlertService struct {
	Reconciliations []ReconciliationAlert
	Syncs           []SyncResult
}

func (m *MockAlertService) SendReconciliationAlert(alert ReconciliationAlert) error {
	m.Reconciliations = append(m.Reconciliations, alert)
	logger.L.Info("MockAlertService: Would send reconciliation alert.", "subject", alert.subject(), "tripID", alert.TripID)
	return nil
}

func (m *MockAlertService) SendSequenceSyncNotice(result SyncResult) error {
	m.Syncs = append(m.Syncs, result)
	logger.L.Info("MockAlertService: Would send sequence sync notice.",
		"documentNumber", result.Target.DocumentNumber, "invoiceCounter", result.Target.InvoiceCounter, "created", result.Created)
	return nil
}
