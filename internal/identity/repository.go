package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// Repository stores the identity each gateway issued to this bridge.
type Repository interface {
	// Get returns the identity registered with host.
	// Returns ErrNotFound if the bridge never registered there.
	Get(ctx context.Context, host string) (gateway.Identity, error)

	// Save stores id for host, replacing any earlier registration.
	Save(ctx context.Context, host string, id gateway.Identity) error

	// Touch records that the identity for host was used successfully.
	Touch(ctx context.Context, host string) error

	// Delete forgets the identity for host.
	Delete(ctx context.Context, host string) error
}

// Record is a stored identity with its bookkeeping timestamps.
type Record struct {
	Host         string
	Identity     gateway.Identity
	RegisteredAt time.Time
	LastUsedAt   *time.Time
}

// SQLiteRepository implements Repository on the gateway_identities table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Get returns the identity registered with host.
func (r *SQLiteRepository) Get(ctx context.Context, host string) (gateway.Identity, error) {
	rec, err := r.Record(ctx, host)
	if err != nil {
		return gateway.Identity{}, err
	}
	return rec.Identity, nil
}

// Record returns the full stored row for host.
func (r *SQLiteRepository) Record(ctx context.Context, host string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT gateway_host, identity, preshared_key, registered_at, last_used_at
		FROM gateway_identities
		WHERE gateway_host = ?`, host)

	var (
		rec          Record
		registeredAt string
		lastUsedAt   sql.NullString
	)
	err := row.Scan(&rec.Host, &rec.Identity.Username, &rec.Identity.SecurityID, &registeredAt, &lastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, host)
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying identity for %s: %w", host, err)
	}

	rec.RegisteredAt, err = time.Parse(time.RFC3339, registeredAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing registered_at for %s: %w", host, err)
	}
	if lastUsedAt.Valid {
		t, err := time.Parse(time.RFC3339, lastUsedAt.String)
		if err != nil {
			return Record{}, fmt.Errorf("parsing last_used_at for %s: %w", host, err)
		}
		rec.LastUsedAt = &t
	}
	return rec, nil
}

// Save stores id for host.
func (r *SQLiteRepository) Save(ctx context.Context, host string, id gateway.Identity) error {
	if host == "" || id.Username == "" || id.SecurityID == "" {
		return fmt.Errorf("%w: host, username and key are required", ErrInvalid)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateway_identities (gateway_host, identity, preshared_key, registered_at, last_used_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(gateway_host) DO UPDATE SET
			identity = excluded.identity,
			preshared_key = excluded.preshared_key,
			registered_at = excluded.registered_at,
			last_used_at = NULL`,
		host, id.Username, id.SecurityID, r.stamp())
	if err != nil {
		return fmt.Errorf("saving identity for %s: %w", host, err)
	}
	return nil
}

// Touch records a successful use of the identity for host.
func (r *SQLiteRepository) Touch(ctx context.Context, host string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gateway_identities SET last_used_at = ? WHERE gateway_host = ?`, r.stamp(), host)
	if err != nil {
		return fmt.Errorf("touching identity for %s: %w", host, err)
	}
	return requireRow(res, host)
}

// Delete forgets the identity for host.
func (r *SQLiteRepository) Delete(ctx context.Context, host string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gateway_identities WHERE gateway_host = ?`, host)
	if err != nil {
		return fmt.Errorf("deleting identity for %s: %w", host, err)
	}
	return requireRow(res, host)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

func requireRow(res sql.Result, host string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, host)
	}
	return nil
}
