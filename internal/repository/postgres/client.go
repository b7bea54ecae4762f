package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/shopspring/decimal"
)

type ClientStore struct {
	pool *pgxpool.Pool
}

func NewClientStore(pool *pgxpool.Pool) *ClientStore {
	return &ClientStore{pool: pool}
}

func (s *ClientStore) GetProfile(ctx context.Context, uid uuid.UUID) (*models.ClientProfile, error) {
	query := `
		SELECT uid, display_name, email, phone, address, updated_at
		FROM clients
		WHERE uid = $1`

	var p models.ClientProfile
	err := s.pool.QueryRow(ctx, query, uid).Scan(
		&p.UID,
		&p.DisplayName,
		&p.Email,
		&p.Phone,
		&p.Address,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	return &p, nil
}

func (s *ClientStore) UpsertProfile(ctx context.Context, p models.ClientProfile) (*models.ClientProfile, error) {
	query := `
		INSERT INTO clients (uid, display_name, email, phone, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (uid) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = now()
		RETURNING uid, display_name, email, phone, address, updated_at`

	var out models.ClientProfile
	err := s.pool.QueryRow(ctx, query, p.UID, p.DisplayName, p.Email, p.Phone, p.Address).Scan(
		&out.UID,
		&out.DisplayName,
		&out.Email,
		&out.Phone,
		&out.Address,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert client profile: %w", err)
	}
	return &out, nil
}

func (s *ClientStore) EnsureProfile(ctx context.Context, uid uuid.UUID, displayName, email string) error {
	query := `
		INSERT INTO clients (uid, display_name, email, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (uid) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, uid, displayName, email); err != nil {
		return fmt.Errorf("ensure client profile: %w", err)
	}
	return nil
}

func (s *ClientStore) CreateInvoice(ctx context.Context, clientUID uuid.UUID, number string, amount decimal.Decimal, currency, status string) (*models.Invoice, error) {
	query := `
		INSERT INTO invoices (client_uid, number, amount, currency, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, client_uid, number, amount, currency, status, issued_at`

	var inv models.Invoice
	err := s.pool.QueryRow(ctx, query, clientUID, number, amount, currency, status).Scan(
		&inv.ID,
		&inv.ClientUID,
		&inv.Number,
		&inv.Amount,
		&inv.Currency,
		&inv.Status,
		&inv.IssuedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	return &inv, nil
}

func (s *ClientStore) ListInvoices(ctx context.Context, clientUID uuid.UUID) ([]models.Invoice, error) {
	query := `
		SELECT id, client_uid, number, amount, currency, status, issued_at
		FROM invoices
		WHERE client_uid = $1
		ORDER BY issued_at DESC`

	rows, err := s.pool.Query(ctx, query, clientUID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]models.Invoice, 0)
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.ClientUID,
			&inv.Number,
			&inv.Amount,
			&inv.Currency,
			&inv.Status,
			&inv.IssuedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	return invoices, nil
}
