package validations

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
)

var validPlatforms = []any{
	domainPost.PlatformMastodon,
	domainPost.PlatformTelegram,
	domainPost.PlatformWebhook,
}

var validFrequencies = []any{
	domainPost.FrequencyDaily,
	domainPost.FrequencyWeekly,
	domainPost.FrequencyMonthly,
}

func ValidateSchedulePost(ctx context.Context, request domainPost.SchedulePostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.OwnerID, validation.Required),
		validation.Field(&request.Content, validation.By(func(any) error {
			return validateContent(ctx, request.Content)
		})),
		validation.Field(&request.PublishAt,
			validation.Required,
			validation.When(!request.Draft, validation.By(futureTime)),
		),
		validation.Field(&request.MaxAttempts, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Recurrence != nil {
		if err := validateRecurrence(ctx, *request.Recurrence); err != nil {
			return err
		}
	}

	return nil
}

// futureTime rejects a publish time that has already passed. Drafts skip
// this rule: they carry no delivery promise until they are scheduled.
func futureTime(value any) error {
	t, ok := value.(time.Time)
	if !ok || !t.After(time.Now()) {
		return errors.New("must be in the future")
	}
	return nil
}

func validateContent(ctx context.Context, content domainPost.Content) error {
	return validation.ValidateStructWithContext(ctx, &content,
		validation.Field(&content.Text, validation.Required, validation.Length(1, 10000)),
		validation.Field(&content.Platforms,
			validation.Required,
			validation.Each(validation.In(validPlatforms...)),
		),
		validation.Field(&content.MediaURLs, validation.Each(is.URL)),
	)
}

func validateRecurrence(ctx context.Context, rule domainPost.RecurrenceRule) error {
	err := validation.ValidateStructWithContext(ctx, &rule,
		validation.Field(&rule.Frequency, validation.Required, validation.In(validFrequencies...)),
		validation.Field(&rule.Interval, validation.Min(0)),
		validation.Field(&rule.EndAfterOccurrences, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for _, day := range rule.Weekdays {
		if day < 0 || day > 6 {
			return pkgError.ValidationError("weekdays: must be between Sunday (0) and Saturday (6)")
		}
	}

	return nil
}
