// Package social implements the pure validation rules behind Social Core:
// comment body/metadata limits and notification types.
// All persistence and counter side effects live in internal/service/social.
package social

import "strings"

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

const (
	maxCommentBodyLen = 2000
	maxBboxLen        = 500
)

// ValidateComment trims body and enforces the comment limits: body
// trimmed 1-2000 chars, bbox at most 500 chars. It returns the
// trimmed body so the caller persists the normalized value, not the raw
// input.
func ValidateComment(body, bbox string) (trimmedBody string, issues []string) {
	trimmedBody = strings.TrimSpace(body)

	if len(trimmedBody) == 0 {
		issues = append(issues, "body: must not be empty")
	}

	if len(trimmedBody) > maxCommentBodyLen {
		issues = append(issues, "body: must be at most 2000 characters")
	}

	if len(bbox) > maxBboxLen {
		issues = append(issues, "bbox: must be at most 500 characters")
	}

	return trimmedBody, issues
}
