package publisher

import (
	"context"
	"fmt"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

// PublishResult is what a platform hands back on success.
type PublishResult struct {
	PlatformPostID string `json:"platform_post_id"`
	URL            string `json:"url"`
}

// PlatformError is the uniform failure shape for any publish invocation.
// The orchestrator treats every cause (auth expiry, rate limit, validation,
// network) the same way.
type PlatformError struct {
	Platform domainPost.Platform
	Code     string
	Message  string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s publish failed [%s]: %s", e.Platform, e.Code, e.Message)
}

// Publisher delivers a post payload to one external platform account.
// One implementation exists per platform; none of them retry internally.
type Publisher interface {
	Platform() domainPost.Platform
	Publish(ctx context.Context, content domainPost.Content, conn domainConnection.Connection) (PublishResult, error)
}
