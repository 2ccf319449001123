// Package sqlstore persists pulses in DuckDB using the pulse_objects and
// pulses tables.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
)

var _ store.Store = (*Store)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store is a DuckDB backed store.Store.
type Store struct {
	db *sql.DB
}

// Open connects to the DuckDB file at path (in-memory when empty) and
// applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// single writer: object-if-absent checks and inserts never interleave
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return domain.WrapStoreError("ping", s.db.PingContext(ctx))
}

func (s *Store) InsertObject(ctx context.Context, obj *domain.PulseObject) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if found, err := exists(ctx, tx, "pulse_objects", sq.Eq{"id": obj.ID}); err != nil || found {
			return duplicateOr(err, found)
		}
		if obj.ExternalID != "" {
			owner, err := externalOwner(ctx, tx, obj)
			if err != nil || owner != "" {
				return duplicateOr(err, owner != "")
			}
		}
		return insertObject(ctx, tx, obj)
	})
	return domain.WrapStoreError("insert object", err)
}

func (s *Store) FindObjectByID(ctx context.Context, id string) (*domain.PulseObject, error) {
	obj, err := findObject(ctx, s.db, sq.Eq{"id": id})
	return obj, domain.WrapStoreError("find object", err)
}

func (s *Store) FindObjectByExternalID(ctx context.Context, typ domain.ObjectType, externalID string) (*domain.PulseObject, error) {
	if externalID == "" {
		return nil, domain.ErrNotFound
	}
	obj, err := findObject(ctx, s.db, sq.Eq{"type": string(typ), "external_id": externalID})
	return obj, domain.WrapStoreError("find object by external id", err)
}

func (s *Store) InsertPulse(ctx context.Context, p *domain.Pulse) error {
	return s.AppendPulse(ctx, nil, p)
}

// AppendPulse runs the object-if-absent check, the optional object insert
// and the pulse insert in one transaction.
func (s *Store) AppendPulse(ctx context.Context, newObject *domain.PulseObject, p *domain.Pulse) error {
	objectID := p.ObjectID

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if found, err := exists(ctx, tx, "pulses", sq.Eq{"id": p.ID}); err != nil || found {
			return duplicateOr(err, found)
		}

		if newObject != nil {
			owner, err := externalOwner(ctx, tx, newObject)
			if err != nil {
				return err
			}
			if owner != "" {
				objectID = owner
			} else {
				if err := insertObject(ctx, tx, newObject); err != nil {
					return err
				}
				objectID = newObject.ID
			}
		} else {
			found, err := exists(ctx, tx, "pulse_objects", sq.Eq{"id": objectID})
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("object %s: %w", objectID, domain.ErrNotFound)
			}
		}

		stored := *p
		stored.ObjectID = objectID
		return insertPulse(ctx, tx, &stored)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.StoreError{Op: "append pulse", Err: err}
		}
		return domain.WrapStoreError("append pulse", err)
	}

	p.ObjectID = objectID
	return nil
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	row := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM pulse_objects),
		(SELECT COUNT(*) FROM pulses),
		(SELECT COUNT(*) FROM (SELECT DISTINCT object_id, latitude, longitude FROM pulses))`)
	if err := row.Scan(&st.Objects, &st.Pulses, &st.Locations); err != nil {
		return domain.Stats{}, domain.WrapStoreError("stats", err)
	}
	return st, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapConstraint(err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func exists(ctx context.Context, q queryer, table string, where sq.Eq) (bool, error) {
	query, args, err := psql.Select("1").From(table).Where(where).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func externalOwner(ctx context.Context, q queryer, obj *domain.PulseObject) (string, error) {
	if obj.ExternalID == "" {
		return "", nil
	}
	query, args, err := psql.Select("id").From("pulse_objects").
		Where(sq.Eq{"type": string(obj.Type), "external_id": obj.ExternalID}).
		Limit(1).ToSql()
	if err != nil {
		return "", err
	}
	var id string
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func insertObject(ctx context.Context, e execer, obj *domain.PulseObject) error {
	query, args, err := psql.Insert("pulse_objects").
		Columns("id", "type", "external_id", "title", "metadata", "created_at").
		Values(obj.ID, string(obj.Type), nullString(obj.ExternalID), obj.Title, nullString(string(obj.Metadata)), obj.CreatedAt.Unix()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, query, args...)
	return mapConstraint(err)
}

func insertPulse(ctx context.Context, e execer, p *domain.Pulse) error {
	query, args, err := psql.Insert("pulses").
		Columns("id", "object_id", "latitude", "longitude", "reaction_type", "comment", "link", "created_at").
		Values(p.ID, p.ObjectID, p.Latitude, p.Longitude, string(p.ReactionType), nullString(p.Comment), nullString(p.Link), p.CreatedAt.Unix()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, query, args...)
	return mapConstraint(err)
}

// mapConstraint turns DuckDB constraint violations into ErrDuplicateKey.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Constraint Error") && strings.Contains(strings.ToLower(msg), "duplicate key") {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	return err
}

func duplicateOr(err error, taken bool) error {
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateKey
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
