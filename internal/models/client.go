package models

import "time"

// Client is a customer principal. TokenCount is the invalidation counter:
// every outstanding refresh token embeds the value current at issuance, and a
// mismatch on verification means the token has been revoked.
type Client struct {
	ID               string    `json:"id" dynamodbav:"id"`
	Email            string    `json:"email" dynamodbav:"email"`
	FirstName        string    `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	PhoneNumber      string    `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	PasswordHash     string    `json:"-" dynamodbav:"password_hash,omitempty"`
	TokenCount       int       `json:"token_count" dynamodbav:"token_count"`
	SquareCustomerID string    `json:"square_customer_id,omitempty" dynamodbav:"square_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (c *Client) GetPK() string {
	return "CLIENT#" + c.ID
}

func (c *Client) GetSK() string {
	return "METADATA"
}
