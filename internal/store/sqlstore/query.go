package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

var viewColumns = []string{
	"p.id", "p.object_id", "p.latitude", "p.longitude", "p.reaction_type",
	"p.comment", "p.link", "p.created_at", "o.title", "o.type", "o.metadata",
}

func findObject(ctx context.Context, q queryer, where sq.Eq) (*domain.PulseObject, error) {
	query, args, err := psql.Select("id", "type", "external_id", "title", "metadata", "created_at").
		From("pulse_objects").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var (
		obj        domain.PulseObject
		typ        string
		externalID sql.NullString
		metadata   sql.NullString
		createdAt  int64
	)
	err = q.QueryRowContext(ctx, query, args...).Scan(&obj.ID, &typ, &externalID, &obj.Title, &metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	obj.Type = domain.ObjectType(typ)
	obj.ExternalID = externalID.String
	if metadata.Valid {
		obj.Metadata = json.RawMessage(metadata.String)
	}
	obj.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &obj, nil
}

func (s *Store) QueryPulsesSince(ctx context.Context, cutoff time.Time) ([]domain.PulseView, error) {
	views, err := s.queryViews(ctx, viewQuery().Where(sq.GtOrEq{"p.created_at": cutoff.Unix()}))
	return views, domain.WrapStoreError("query pulses since", err)
}

func (s *Store) LatestPulses(ctx context.Context, limit int) ([]domain.PulseView, error) {
	if limit <= 0 {
		return []domain.PulseView{}, nil
	}
	views, err := s.queryViews(ctx, viewQuery().
		OrderBy("p.created_at DESC", "p.rowid DESC").
		Limit(uint64(limit)))
	return views, domain.WrapStoreError("latest pulses", err)
}

func (s *Store) QueryObjectLocationCandidates(ctx context.Context, limit int) ([]domain.LocationCandidate, error) {
	candidates := make([]domain.LocationCandidate, 0)
	if limit <= 0 {
		return candidates, nil
	}

	query, args, err := psql.
		Select("o.id", "o.title", "o.type", "p.latitude", "p.longitude", "COUNT(*) AS pulse_count").
		From("pulses p").
		Join("pulse_objects o ON o.id = p.object_id").
		GroupBy("o.id", "o.title", "o.type", "p.latitude", "p.longitude").
		OrderBy("MIN(p.created_at)", "MIN(p.rowid)").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, domain.WrapStoreError("query location candidates", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStoreError("query location candidates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c   domain.LocationCandidate
			typ string
		)
		if err := rows.Scan(&c.ObjectID, &c.Title, &typ, &c.Latitude, &c.Longitude, &c.PulseCount); err != nil {
			return nil, domain.WrapStoreError("scan location candidate", err)
		}
		c.Type = domain.ObjectType(typ)
		candidates = append(candidates, c)
	}
	return candidates, domain.WrapStoreError("query location candidates", rows.Err())
}

func viewQuery() sq.SelectBuilder {
	return psql.Select(viewColumns...).
		From("pulses p").
		Join("pulse_objects o ON o.id = p.object_id")
}

func (s *Store) queryViews(ctx context.Context, b sq.SelectBuilder) ([]domain.PulseView, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.PulseView, 0)
	for rows.Next() {
		var (
			v                       domain.PulseView
			reaction, typ           string
			comment, link, metadata sql.NullString
			createdAt               int64
		)
		if err := rows.Scan(&v.ID, &v.ObjectID, &v.Latitude, &v.Longitude, &reaction,
			&comment, &link, &createdAt, &v.Title, &typ, &metadata); err != nil {
			return nil, err
		}
		v.ReactionType = domain.ReactionType(reaction)
		v.Comment = comment.String
		v.Link = link.String
		v.CreatedAt = time.Unix(createdAt, 0).UTC()
		v.Type = domain.ObjectType(typ)
		if metadata.Valid {
			v.Metadata = json.RawMessage(metadata.String)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
