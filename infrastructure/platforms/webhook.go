package platforms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
)

const signatureHeader = "X-Postpilot-Signature"

// WebhookPublisher delivers the post as a JSON payload to an arbitrary
// endpoint. When the connection carries a secret the body is signed with
// HMAC-SHA256 so the receiver can verify origin.
type WebhookPublisher struct{}

func NewWebhookPublisher() *WebhookPublisher {
	return &WebhookPublisher{}
}

func (p *WebhookPublisher) Platform() domainPost.Platform {
	return domainPost.PlatformWebhook
}

type webhookPayload struct {
	DeliveryID string    `json:"delivery_id"`
	Text       string    `json:"text"`
	MediaURLs  []string  `json:"media_urls,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

func (p *WebhookPublisher) Publish(ctx context.Context, content domainPost.Content, conn domainConnection.Connection) (domainPublisher.PublishResult, error) {
	endpoint := strings.TrimSpace(conn.Credentials.ServerURL)
	if endpoint == "" {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "MISSING_CREDENTIALS",
			Message:  "connection has no endpoint url",
		}
	}

	payload := webhookPayload{
		DeliveryID: uuid.NewString(),
		Text:       content.Text,
		MediaURLs:  content.MediaURLs,
		SentAt:     time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domainPublisher.PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domainPublisher.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret := conn.Credentials.Secret; secret != "" {
		req.Header.Set(signatureHeader, signBody(body, secret))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "PUBLISH_FAILED",
			Message:  err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "PUBLISH_FAILED",
			Message:  fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(data)),
		}
	}

	logrus.Debugf("[WEBHOOK] delivery %s accepted by %s", payload.DeliveryID, endpoint)
	return domainPublisher.PublishResult{PlatformPostID: payload.DeliveryID}, nil
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
