package dynamo

// DynamoDB attribute and index names shared by the repos and Bootstrap.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	// fieldEmailKey holds the lower-cased email the email-index is keyed on.
	fieldEmailKey  = "email_lower"
	fieldCode      = "code"
	fieldExpiresAt = "expires_at"

	indexEmail  = "email-index"
	indexUserID = "user_id-index"
)
