package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
)

func ValidateCreateConnection(ctx context.Context, request domainConnection.CreateConnectionRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.OwnerID, validation.Required),
		validation.Field(&request.Platform, validation.Required, validation.In(validPlatforms...)),
		validation.Field(&request.DisplayName, validation.Length(0, 255)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return validateCredentials(ctx, request.Platform, request.Credentials)
}

// validateCredentials checks the per-platform required fields: each
// publisher authenticates differently.
func validateCredentials(ctx context.Context, platform domainPost.Platform, creds domainConnection.Credentials) error {
	var err error
	switch platform {
	case domainPost.PlatformMastodon:
		err = validation.ValidateStructWithContext(ctx, &creds,
			validation.Field(&creds.AccessToken, validation.Required),
			validation.Field(&creds.ServerURL, validation.Required, is.URL),
		)
	case domainPost.PlatformTelegram:
		err = validation.ValidateStructWithContext(ctx, &creds,
			validation.Field(&creds.AccessToken, validation.Required),
			validation.Field(&creds.ChatID, validation.Required),
		)
	case domainPost.PlatformWebhook:
		err = validation.ValidateStructWithContext(ctx, &creds,
			validation.Field(&creds.ServerURL, validation.Required, is.URL),
		)
	}
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
