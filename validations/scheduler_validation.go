package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	pkgError "github.com/nivaro/postpilot/pkg/error"
	"github.com/nivaro/postpilot/scheduling/domain"
)

const maxContentChars = 1500

func ValidateSchedulePost(ctx context.Context, request domain.SchedulePostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.TargetID, validation.Required),
		validation.Field(&request.Content, validation.Required, validation.Length(1, maxContentChars)),
		validation.Field(&request.ScheduledAt, validation.Required),
		validation.Field(&request.CallToAction, is.URL),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Kind != "" && !domain.ValidPostKind(request.Kind) {
		return pkgError.ValidationError("post_kind must be one of: update, offer, event, product")
	}

	return nil
}

func ValidateEditPost(ctx context.Context, request domain.EditPostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Content, validation.Required, validation.Length(1, maxContentChars)),
		validation.Field(&request.ScheduledAt, validation.Required),
		validation.Field(&request.CallToAction, is.URL),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Kind != "" && !domain.ValidPostKind(request.Kind) {
		return pkgError.ValidationError("post_kind must be one of: update, offer, event, product")
	}

	return nil
}

func ValidateCreateJob(ctx context.Context, request domain.CreateJobRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&request.TargetIDs, validation.Required, validation.Length(1, 0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Schedule == nil {
		return pkgError.ValidationError("schedule is required")
	}

	return validateGenerationSettings(request.Settings)
}

func ValidateUpdateJob(ctx context.Context, request domain.UpdateJobRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&request.TargetIDs, validation.Required, validation.Length(1, 0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return validateGenerationSettings(request.Settings)
}

func validateGenerationSettings(settings domain.GenerationSettings) error {
	if settings.PostKind != "" && !domain.ValidPostKind(settings.PostKind) {
		return pkgError.ValidationError("settings.post_kind must be one of: update, offer, event, product")
	}
	if settings.MaxPostsPerTarget < 0 {
		return pkgError.ValidationError("settings.max_posts_per_target must not be negative")
	}
	return nil
}
