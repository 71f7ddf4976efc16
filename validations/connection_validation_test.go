package validations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

func TestValidateCreateConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("mastodon needs token and server", func(t *testing.T) {
		request := domainConnection.CreateConnectionRequest{
			OwnerID:  "owner-1",
			Platform: domainPost.PlatformMastodon,
			Credentials: domainConnection.Credentials{
				AccessToken: "tok",
				ServerURL:   "https://mastodon.example",
			},
		}
		assert.NoError(t, ValidateCreateConnection(ctx, request))

		request.Credentials.ServerURL = ""
		assert.Error(t, ValidateCreateConnection(ctx, request))
	})

	t.Run("telegram needs token and chat id", func(t *testing.T) {
		request := domainConnection.CreateConnectionRequest{
			OwnerID:  "owner-1",
			Platform: domainPost.PlatformTelegram,
			Credentials: domainConnection.Credentials{
				AccessToken: "bot-token",
				ChatID:      "@channel",
			},
		}
		assert.NoError(t, ValidateCreateConnection(ctx, request))

		request.Credentials.ChatID = ""
		assert.Error(t, ValidateCreateConnection(ctx, request))
	})

	t.Run("webhook needs endpoint url", func(t *testing.T) {
		request := domainConnection.CreateConnectionRequest{
			OwnerID:  "owner-1",
			Platform: domainPost.PlatformWebhook,
			Credentials: domainConnection.Credentials{
				ServerURL: "https://hooks.example/publish",
			},
		}
		assert.NoError(t, ValidateCreateConnection(ctx, request))

		request.Credentials.ServerURL = "not-a-url"
		assert.Error(t, ValidateCreateConnection(ctx, request))
	})

	t.Run("missing owner fails", func(t *testing.T) {
		request := domainConnection.CreateConnectionRequest{
			Platform: domainPost.PlatformWebhook,
			Credentials: domainConnection.Credentials{
				ServerURL: "https://hooks.example/publish",
			},
		}
		assert.Error(t, ValidateCreateConnection(ctx, request))
	})

	t.Run("unknown platform fails", func(t *testing.T) {
		request := domainConnection.CreateConnectionRequest{
			OwnerID:  "owner-1",
			Platform: "friendster",
		}
		assert.Error(t, ValidateCreateConnection(ctx, request))
	})
}
