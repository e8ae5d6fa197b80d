package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one row of the append-only event_log.
type Event struct {
	Offset    int64  `json:"offset"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// Append stores e and returns its offset. An empty SiteID takes the repo's.
func (r *EventRepo) Append(ctx context.Context, e Event) (int64, error) {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	var off int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO event_log (site_id, event_type, event_key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING seq`,
		e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt).Scan(&off)
	if err != nil {
		return 0, fmt.Errorf("append event %s: %w", e.Type, err)
	}
	return off, nil
}

// Record marshals data and appends it as an event of type typ.
func (r *EventRepo) Record(ctx context.Context, typ, key string, data any, at time.Time) (int64, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	return r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(raw), CreatedAt: at.Unix()})
}

// Since lists events with an offset greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, event_type, event_key, data, created_at
		 FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
