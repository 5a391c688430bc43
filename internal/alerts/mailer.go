package alerts

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Mailer delivers trading alerts over SMTP
type Mailer struct {
	host       string
	port       string
	sender     string
	password   string
	recipients []string
	logger     *logger.Logger
}

// NewMailer creates a mailer from config
func NewMailer(cfg *config.Config, log *logger.Logger) *Mailer {
	return &Mailer{
		host:       cfg.Alerts.SMTPHost,
		port:       cfg.Alerts.SMTPPort,
		sender:     cfg.Alerts.Sender,
		password:   cfg.Alerts.Password,
		recipients: cfg.Alerts.Recipients,
		logger:     log.WithField("module", "alerts"),
	}
}

// SendSignalAlert emails a BUY/SELL alert to all configured recipients
func (m *Mailer) SendSignalAlert(signal contracts.Signal, lastClose float64) error {
	if len(m.recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	subject := fmt.Sprintf("ALERT: %s %s", signal.Action, signal.Ticker)
	body := m.buildBody(signal, lastClose)

	msg := strings.Join([]string{
		"From: " + m.sender,
		"To: " + strings.Join(m.recipients, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.sender, m.password, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.sender, m.recipients, []byte(msg)); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"ticker":     signal.Ticker,
		"action":     signal.Action,
		"recipients": len(m.recipients),
	}).Info("Alert sent")

	return nil
}

func (m *Mailer) buildBody(signal contracts.Signal, lastClose float64) string {
	return fmt.Sprintf(`TRADING ALERT
---------------------------------
Time:       %s
Ticker:     %s
Signal:     %s
Price:      %.2f
Confidence: %.2f
---------------------------------
Check the dashboard for details.
`,
		time.Now().Format("2006-01-02 15:04:05"),
		signal.Ticker,
		signal.Action,
		lastClose,
		signal.Confidence,
	)
}
