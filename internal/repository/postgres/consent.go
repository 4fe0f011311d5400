package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rtlmb/member-sync/internal/domain"
)

// ConsentRepo implements sync.ConsentStore against PostgreSQL.
// The ledger is append-only: there is no update or delete path.
type ConsentRepo struct{ db *sql.DB }

// NewConsentRepo creates a Postgres-backed consent ledger repository.
func NewConsentRepo(db *sql.DB) *ConsentRepo { return &ConsentRepo{db: db} }

func (r *ConsentRepo) Append(ctx context.Context, entry *domain.ConsentLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consent_logs (id, email, first_name, last_name, consent_at,
		                          consent_source, consent_ip, user_agent, policy_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.Email, entry.FirstName, entry.LastName, entry.ConsentAt,
		entry.ConsentSource, entry.ConsentIP, entry.UserAgent, entry.PolicyVersion)
	if err != nil {
		return fmt.Errorf("append consent: %w", err)
	}
	return nil
}

func (r *ConsentRepo) FindLatest(ctx context.Context, email string) (*domain.ConsentLogEntry, error) {
	entry := &domain.ConsentLogEntry{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(first_name,''), COALESCE(last_name,''), consent_at,
		       consent_source, consent_ip, COALESCE(user_agent,''), policy_version
		FROM consent_logs
		WHERE email = $1
		ORDER BY consent_at DESC, id DESC
		LIMIT 1
	`, email).Scan(
		&entry.ID, &entry.Email, &entry.FirstName, &entry.LastName, &entry.ConsentAt,
		&entry.ConsentSource, &entry.ConsentIP, &entry.UserAgent, &entry.PolicyVersion,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest consent: %w", err)
	}
	return entry, nil
}
