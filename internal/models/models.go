// package models defines the data model for the setlist playlist generator
package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

var _ Model = (*OAuthToken)(nil)

// OAuthToken is a stored playlist-service token, keyed by provider name.
type OAuthToken struct {
	id        string
	Provider  string
	Token     *oauth2.Token
	createdAt time.Time
	updatedAt time.Time
}

// NewOAuthToken creates a token entity for provider with fresh timestamps.
func NewOAuthToken(provider string, token *oauth2.Token) *OAuthToken {
	now := time.Now().UTC()
	return &OAuthToken{Provider: provider, Token: token, createdAt: now, updatedAt: now}
}

func (t *OAuthToken) ID() string           { return t.id }
func (t *OAuthToken) CreatedAt() time.Time { return t.createdAt }
func (t *OAuthToken) UpdatedAt() time.Time { return t.updatedAt }

func (t *OAuthToken) SetID(id string)           { t.id = id }
func (t *OAuthToken) SetCreatedAt(ts time.Time) { t.createdAt = ts }
func (t *OAuthToken) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }

// Validate requires a provider and an access token.
func (t *OAuthToken) Validate() error {
	if t.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if t.Token == nil || t.Token.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
