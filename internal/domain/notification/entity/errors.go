package entity

import "github.com/vadim/impulsa-inbox/internal/apperror"

// Domain errors for notifications
var (
	ErrNotificationNotFound = apperror.NotFound("notification not found")
	ErrInvalidUserID        = apperror.Validation("user id must be positive")
	ErrInvalidID            = apperror.Validation("notification id must be positive")
	ErrInvalidType          = apperror.Validation("invalid notification type")
	ErrEmptyTitle           = apperror.Validation("title is required")
	ErrTitleTooLong         = apperror.Validation("title exceeds maximum length of 255 characters")
	ErrEmptyMessage         = apperror.Validation("message is required")
	ErrMessageTooLong       = apperror.Validation("message exceeds maximum length of 1000 characters")
	ErrInvalidLimit         = apperror.Validation("limit must not be negative")
	ErrPayloadMismatch      = apperror.Validation("payload does not match notification type")
	ErrInvalidPayload       = apperror.Validation("invalid notification payload")
	ErrInvalidItemType      = apperror.Validation("invalid item type")
	ErrInvalidRating        = apperror.Validation("rating must be between 1 and 5")
)
