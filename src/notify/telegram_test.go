package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ interfaces.INotifier = (*TelegramNotifier)(nil)
	_ interfaces.INotifier = (*LogNotifier)(nil)
)

func sampleEvent() models.MSpikeEvent {
	ist, _ := time.LoadLocation("Asia/Kolkata")
	return models.MSpikeEvent{
		Symbol:        "NSE:M&M-EQ",
		Sector:        "Auto",
		Price:         100,
		VolumeDelta:   4_999_000,
		NotionalValue: 499_900_000,
		Severity:      models.SeverityLarge,
		ObservedAt:    time.Date(2026, 10, 19, 10, 15, 30, 0, ist),
	}
}

func newNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5}}
	netMgr := network.NewAsyncNetworkManager(cfg, logger.NewNop())
	return NewTelegramNotifier(models.MTelegramConfig{
		APIURL:   srv.URL,
		BotToken: "secret-token",
		ChatID:   "1001",
	}, netMgr, time.UTC, logger.NewNop())
}

func TestFormatSpike(t *testing.T) {
	ist, _ := time.LoadLocation("Asia/Kolkata")
	msg := FormatSpike(sampleEvent(), ist)

	assert.Contains(t, msg, "<b>Volume Spike Alert</b>")
	assert.Contains(t, msg, "<b>Symbol:</b> NSE:M&amp;M-EQ")
	assert.Contains(t, msg, "<b>Volume:</b> 4,999,000")
	assert.Contains(t, msg, "<b>Price:</b> Rs100.00")
	assert.Contains(t, msg, "<b>Value:</b> Rs49.99 Crores")
	assert.Contains(t, msg, "<b>Type:</b> Large Spike")
	assert.Contains(t, msg, "<b>Time:</b> 10:15:30")
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", GroupThousands(0))
	assert.Equal(t, "999", GroupThousands(999))
	assert.Equal(t, "1,000", GroupThousands(1000))
	assert.Equal(t, "12,345,678", GroupThousands(12345678))
	assert.Equal(t, "-1,234", GroupThousands(-1234))
}

func TestTelegramNotifier_Sends(t *testing.T) {
	n := newNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret-token/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1001", r.PostForm.Get("chat_id"))
		assert.Equal(t, "HTML", r.PostForm.Get("parse_mode"))
		assert.Contains(t, r.PostForm.Get("text"), "Large Spike")
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, n.NotifySpike(context.Background(), sampleEvent()))
}

func TestTelegramNotifier_Rejected(t *testing.T) {
	n := newNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	err := n.NotifyOperator(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramNotifier_HidesTokenInErrors(t *testing.T) {
	n := newNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	err := n.NotifyOperator(context.Background(), "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}
