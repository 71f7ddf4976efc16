package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
)

// MastodonPublisher posts statuses through the Mastodon REST API of the
// instance stored in the connection credentials.
type MastodonPublisher struct{}

func NewMastodonPublisher() *MastodonPublisher {
	return &MastodonPublisher{}
}

func (p *MastodonPublisher) Platform() domainPost.Platform {
	return domainPost.PlatformMastodon
}

func (p *MastodonPublisher) Publish(ctx context.Context, content domainPost.Content, conn domainConnection.Connection) (domainPublisher.PublishResult, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(conn.Credentials.ServerURL), "/")
	if baseURL == "" || conn.Credentials.AccessToken == "" {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "MISSING_CREDENTIALS",
			Message:  "connection has no server url or access token",
		}
	}

	status := content.Text
	// Media upload needs a separate attachments endpoint; until that lands
	// the URLs travel inside the status body, which Mastodon renders as
	// previews anyway.
	if len(content.MediaURLs) > 0 {
		status = status + "\n\n" + strings.Join(content.MediaURLs, "\n")
	}

	req := map[string]interface{}{
		"status":     status,
		"visibility": "public",
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}

	headers := map[string]string{"Authorization": "Bearer " + conn.Credentials.AccessToken}
	err := jsonRequest(ctx, http.MethodPost, baseURL+"/api/v1/statuses", headers, req, &resp)
	if err != nil {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "PUBLISH_FAILED",
			Message:  err.Error(),
		}
	}

	if resp.ID == "" {
		return domainPublisher.PublishResult{}, &domainPublisher.PlatformError{
			Platform: p.Platform(),
			Code:     "EMPTY_RESPONSE",
			Message:  fmt.Sprintf("status created on %s but no id returned", baseURL),
		}
	}

	logrus.Debugf("[MASTODON] status %s created on %s", resp.ID, baseURL)
	return domainPublisher.PublishResult{PlatformPostID: resp.ID, URL: resp.URL}, nil
}
