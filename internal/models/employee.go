package models

import "time"

// Employee is a staff principal. A newly provisioned employee has a temporary
// password; PermanentPasswordSet flips once they choose their own, which is
// what the session layer keys full-session promotion on.
type Employee struct {
	ID                   string    `json:"id" dynamodbav:"id"`
	Email                string    `json:"email" dynamodbav:"email"`
	FirstName            string    `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName             string    `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	PhoneNumber          string    `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	PasswordHash         string    `json:"-" dynamodbav:"password_hash"`
	Role                 string    `json:"role" dynamodbav:"role"`
	TokenCount           int       `json:"token_count" dynamodbav:"token_count"`
	PermanentPasswordSet bool      `json:"permanent_password_set" dynamodbav:"permanent_password_set"`
	CreatedAt            time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (e *Employee) GetPK() string {
	return "EMPLOYEE#" + e.ID
}

func (e *Employee) GetSK() string {
	return "METADATA"
}
