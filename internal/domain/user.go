package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	IsVerified   bool      `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,nospace"`
	Password string `json:"password" validate:"required,min=8,max=72,complexity"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
