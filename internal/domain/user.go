package domain

// User is the directory view of an account. The auth flow never writes it.
type User struct {
	UserID   string `json:"id" dynamodbav:"user_id"`
	Email    string `json:"email" dynamodbav:"email"`
	UserName string `json:"user_name" dynamodbav:"user_name"`
}
