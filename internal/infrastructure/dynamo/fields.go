package dynamo

import "time"

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID         = "user_id"
	fieldNoticeID       = "notice_id"
	fieldProviderID     = "provider_id"
	fieldContentRemoved = "content_removed"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"

	indexUserCreatedAt = "user_id-created_at-index"
)

// sortableTime is RFC 3339 with a fixed nine-digit fraction, always in UTC.
// created_at is the GSI range key, so its string order must match time order;
// RFC3339Nano trims trailing zeros and does not.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sortableTime)
}
