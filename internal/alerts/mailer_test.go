package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

func testMailer(recipients ...string) *Mailer {
	cfg := &config.Config{}
	cfg.Alerts.SMTPHost = "smtp.example.com"
	cfg.Alerts.SMTPPort = "587"
	cfg.Alerts.Sender = "alerts@example.com"
	cfg.Alerts.Recipients = recipients
	return NewMailer(cfg, logger.NewNop())
}

func TestMailer_BuildBody(t *testing.T) {
	m := testMailer("user@example.com")

	signal := contracts.Signal{
		Ticker:     "AAPL",
		Date:       time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Action:     contracts.ActionBuy,
		Confidence: 0.87,
	}

	body := m.buildBody(signal, 192.53)

	assert.Contains(t, body, "Ticker:     AAPL")
	assert.Contains(t, body, "Signal:     BUY")
	assert.Contains(t, body, "Price:      192.53")
	assert.Contains(t, body, "Confidence: 0.87")
}

func TestMailer_SendSignalAlert_NoRecipients(t *testing.T) {
	m := testMailer()

	err := m.SendSignalAlert(contracts.Signal{Ticker: "AAPL", Action: contracts.ActionBuy}, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no alert recipients")
}
