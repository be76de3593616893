package backup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the nickname_backups table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS nickname_backups (
    guild_id  TEXT NOT NULL,
    member_id BIGINT NOT NULL,
    nickname  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (guild_id, member_id)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Each snapshot
// entry becomes one row keyed by (guild_id, member_id).
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("backup: migrate: %w", err)
	}
	return nil
}

// Save implements [Store.Save]. The prior snapshot for the guild, if any,
// is replaced wholesale.
func (s *PostgresStore) Save(ctx context.Context, guildID string, snap Snapshot) error {
	recs, err := encodeRecords(snap)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM nickname_backups WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("%w: clear guild %s: %v", ErrStorage, guildID, err)
	}
	for _, r := range recs {
		_, err := s.db.Exec(ctx,
			`INSERT INTO nickname_backups (guild_id, member_id, nickname) VALUES ($1, $2, $3)`,
			guildID, r.ID, r.Nickname,
		)
		if err != nil {
			return fmt.Errorf("%w: insert guild %s member %d: %v", ErrStorage, guildID, r.ID, err)
		}
	}
	return nil
}

// Load implements [Store.Load].
func (s *PostgresStore) Load(ctx context.Context, guildID string) (Snapshot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT member_id, nickname FROM nickname_backups WHERE guild_id = $1`, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: query guild %s: %v", ErrStorage, guildID, err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var memberID int64
		var nickname string
		if err := rows.Scan(&memberID, &nickname); err != nil {
			return nil, fmt.Errorf("%w: scan guild %s: %v", ErrStorage, guildID, err)
		}
		snap[strconv.FormatInt(memberID, 10)] = nickname
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate guild %s: %v", ErrStorage, guildID, err)
	}
	return snap, nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, guildID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM nickname_backups WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("%w: delete guild %s: %v", ErrStorage, guildID, err)
	}
	return nil
}
