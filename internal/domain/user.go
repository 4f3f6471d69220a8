package domain

import "time"

// User is the durable account record, created only by promoting a fully
// verified PendingRegistration.
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id" bson:"user_id"`
	FirstName    string     `json:"firstName" dynamodbav:"first_name" bson:"first_name"`
	LastName     string     `json:"lastName" dynamodbav:"last_name" bson:"last_name"`
	Mobile       string     `json:"mobile" dynamodbav:"mobile" bson:"mobile"`
	Email        string     `json:"email" dynamodbav:"email" bson:"email"`
	LoginID      string     `json:"loginId" dynamodbav:"login_id" bson:"login_id"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash" bson:"password_hash"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" dynamodbav:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" dynamodbav:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" dynamodbav:"updated_at" bson:"updated_at"`
}

// SignupRequest carries the user details collected at signup.
type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Mobile    string `json:"mobile" validate:"required,mobile10"`
	Email     string `json:"email" validate:"required,email_shape"`
	LoginID   string `json:"loginId" validate:"required,loginid"`
	Password  string `json:"password" validate:"required,password_policy"`
}

// LoginRequest authenticates by login id or email; LoginID wins when both are set.
type LoginRequest struct {
	LoginID  string `json:"loginId"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}
