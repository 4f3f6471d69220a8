package dynamo

// DynamoDB attribute names used in keys, indexes and update expressions.
const (
	fieldEmail       = "email"
	fieldUserID      = "user_id"
	fieldLoginID     = "login_id"
	fieldUpdatedAt   = "updated_at"
	fieldLastLoginAt = "last_login_at"

	fieldCacheKey  = "cache_key"
	fieldValue     = "value"
	fieldExpiresAt = "expires_at"
)

// Secondary index names on the users table.
const (
	indexUserID  = "user_id-index"
	indexLoginID = "login_id-index"
)
