package platforms

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramPublisher sends messages through the Bot API. The bot token and
// target chat live in the connection credentials.
type TelegramPublisher struct {
	// APIBase overrides the Bot API host, mainly for tests and proxies.
	APIBase string
}

func NewTelegramPublisher() *TelegramPublisher {
	return &TelegramPublisher{}
}

func (p *TelegramPublisher) Platform() domainPost.Platform {
	return domainPost.PlatformTelegram
}

func (p *TelegramPublisher) apiBase() string {
	if p.APIBase != "" {
		return strings.TrimRight(p.APIBase, "/")
	}
	return defaultTelegramAPIBase
}

func (p *TelegramPublisher) Publish(ctx context.Context, content domainPost.Content, conn domainConnection.Connection) (domainPublisher.PublishResult, error) {
	token := conn.Credentials.AccessToken
	chatID := conn.Credentials.ChatID
	if token == "" || chatID == "" {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "MISSING_CREDENTIALS",
			Message:  "connection has no bot token or chat id",
		}
	}

	text := content.Text
	if len(content.MediaURLs) > 0 {
		text = text + "\n\n" + strings.Join(content.MediaURLs, "\n")
	}

	req := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				Username string `json:"username"`
			} `json:"chat"`
		} `json:"result"`
	}

	url := p.apiBase() + "/bot" + token + "/sendMessage"
	if err := jsonRequest(ctx, http.MethodPost, url, nil, req, &resp); err != nil {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "PUBLISH_FAILED",
			Message:  err.Error(),
		}
	}

	if !resp.OK {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "API_ERROR",
			Message:  resp.Description,
		}
	}

	messageID := strconv.FormatInt(resp.Result.MessageID, 10)
	result := domainPublisher.PublishResult{PlatformPostID: messageID}
	if resp.Result.Chat.Username != "" {
		result.URL = "https://t.me/" + resp.Result.Chat.Username + "/" + messageID
	}

	logrus.Debugf("[TELEGRAM] message %s sent to %s", messageID, chatID)
	return result, nil
}
