package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
)

// TelegramNotifier sends messages through the Bot API sendMessage method.
// Each call is a single attempt bounded by the caller's context.
type TelegramNotifier struct {
	Config   models.MTelegramConfig
	Network  interfaces.INetworkManager
	Logger   *logger.Logger
	Location *time.Location
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// -----------------------------------------------------------------------------

func NewTelegramNotifier(cfg models.MTelegramConfig, netMgr interfaces.INetworkManager, loc *time.Location, log *logger.Logger) *TelegramNotifier {
	return &TelegramNotifier{Config: cfg, Network: netMgr, Location: loc, Logger: log}
}

// -----------------------------------------------------------------------------

func (n *TelegramNotifier) NotifySpike(ctx context.Context, ev models.MSpikeEvent) error {
	return n.send(ctx, FormatSpike(ev, n.Location))
}

// -----------------------------------------------------------------------------

func (n *TelegramNotifier) NotifyOperator(ctx context.Context, message string) error {
	return n.send(ctx, message)
}

// -----------------------------------------------------------------------------

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.Config.APIURL, "/"), n.Config.BotToken)

	body, err := n.Network.PostForm(ctx, endpoint, url.Values{
		"chat_id":    {n.Config.ChatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	})
	if err != nil {
		// The endpoint embeds the bot token; keep it out of logs
		return fmt.Errorf("telegram sendMessage: %s", strings.ReplaceAll(err.Error(), n.Config.BotToken, "***"))
	}

	var resp telegramResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("telegram sendMessage: invalid response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram sendMessage rejected: %s", resp.Description)
	}
	return nil
}
