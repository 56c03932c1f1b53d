package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var ErrSettingsNotConfigured = errors.New("EIMS settings are not configured")

// Cipher encrypts credentials at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SettingsRepository stores the single EIMS settings row. Client secret and API
// key are encrypted with the configured cipher.
type SettingsRepository struct {
	db     *sql.DB
	cipher Cipher
}

func NewSettingsRepository(db *sql.DB, cipher Cipher) *SettingsRepository {
	return &SettingsRepository{db: db, cipher: cipher}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var (
		s                    models.Settings
		secretEnc, apiKeyEnc string
	)
	err := r.db.QueryRowContext(ctx, `SELECT seller_tin, legal_name, phone, email, region, city,
		system_number, system_type, client_id, client_secret_enc, api_key_enc
		FROM eims_settings WHERE id = 1`).
		Scan(&s.SellerTIN, &s.LegalName, &s.Phone, &s.Email, &s.Region, &s.City,
			&s.SystemNumber, &s.SystemType, &s.ClientID, &secretEnc, &apiKeyEnc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}

	if s.ClientSecret, err = r.cipher.Decrypt(secretEnc); err != nil {
		return nil, fmt.Errorf("client secret: %w", err)
	}
	if s.APIKey, err = r.cipher.Decrypt(apiKeyEnc); err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}
	return &s, nil
}

// Save replaces the settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *models.Settings) error {
	if s.SellerTIN == "" {
		return fmt.Errorf("%w: seller TIN is required", ErrSettingsNotConfigured)
	}
	secretEnc, err := r.cipher.Encrypt(s.ClientSecret)
	if err != nil {
		return fmt.Errorf("encrypt client secret: %w", err)
	}
	apiKeyEnc, err := r.cipher.Encrypt(s.APIKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO eims_settings (id, seller_tin, legal_name, phone, email, region, city,
			system_number, system_type, client_id, client_secret_enc, api_key_enc, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seller_tin = excluded.seller_tin, legal_name = excluded.legal_name, phone = excluded.phone,
			email = excluded.email, region = excluded.region, city = excluded.city,
			system_number = excluded.system_number, system_type = excluded.system_type,
			client_id = excluded.client_id, client_secret_enc = excluded.client_secret_enc,
			api_key_enc = excluded.api_key_enc, updated_at = excluded.updated_at`,
		s.SellerTIN, s.LegalName, s.Phone, s.Email, s.Region, s.City,
		s.SystemNumber, s.SystemType, s.ClientID, secretEnc, apiKeyEnc, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
