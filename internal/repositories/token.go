package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/shared"
	"golang.org/x/oauth2"
)

// TokenRepository persists [models.OAuthToken] rows keyed by provider.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts the provider's token, or replaces it if one is already stored.
// The row keeps its ID and creation time across replacements.
func (r *TokenRepository) Save(tok *models.OAuthToken) error {
	if err := tok.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if tok.ID() == "" {
		tok.SetID(shared.GenerateID())
	}
	now := time.Now().UTC()
	tok.SetUpdatedAt(now)

	query := `
		INSERT INTO oauth_tokens (id, provider, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		tok.ID(),
		tok.Provider,
		tok.Token.AccessToken,
		tok.Token.RefreshToken,
		tokenType(tok.Token),
		nullTime(tok.Token.Expiry),
		tok.CreatedAt(),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// SaveToken is [TokenRepository.Save] for a bare [oauth2.Token], suitable as a refresh callback.
func (r *TokenRepository) SaveToken(provider string, token *oauth2.Token) error {
	return r.Save(models.NewOAuthToken(provider, token))
}

// Get retrieves the stored token for provider.
func (r *TokenRepository) Get(provider string) (*models.OAuthToken, error) {
	query := `
		SELECT id, provider, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM oauth_tokens
		WHERE provider = ?
	`

	var (
		id        string
		prov      string
		token     oauth2.Token
		expiry    sql.NullTime
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, provider).Scan(
		&id, &prov, &token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token for %s", shared.ErrNotFound, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}

	tok := models.NewOAuthToken(prov, &token)
	tok.SetID(id)
	tok.SetCreatedAt(createdAt)
	tok.SetUpdatedAt(updatedAt)
	return tok, nil
}

// Delete removes the stored token for provider.
func (r *TokenRepository) Delete(provider string) error {
	result, err := r.db.Exec("DELETE FROM oauth_tokens WHERE provider = ?", provider)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return checkAffected(result, "token for", provider)
}

func tokenType(t *oauth2.Token) string {
	if t.TokenType == "" {
		return "Bearer"
	}
	return t.TokenType
}
