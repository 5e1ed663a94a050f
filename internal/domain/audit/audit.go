package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded change. OldValue and NewValue hold JSON
// snapshots of the entity before and after, when available.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId"`
	OldValue  string    `json:"oldValue,omitempty"`
	NewValue  string    `json:"newValue,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Filter struct {
	Action string
	Entity string
	UserID string
	Limit  int
	Offset int
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// Record writes one audit entry. Before and after are marshalled to
// JSON; pass nil for either side when there is no snapshot.
func (s *Service) Record(ctx context.Context, userID, action, entity, entityID, reason string, before, after any) error {
	var oldValue, newValue *string
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		text := string(payload)
		oldValue = &text
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		text := string(payload)
		newValue = &text
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_logs (user_id, action, entity, entity_id, old_value, new_value, reason)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, userID, action, entity, entityID, oldValue, newValue, nullIfEmpty(reason))
	return err
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
    SELECT id, user_id, action, entity, entity_id,
           COALESCE(old_value, ''), COALESCE(new_value, ''), COALESCE(reason, ''), created_at
    FROM audit_logs WHERE 1=1`
	var args []any
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.Entity != "" {
		query += fmt.Sprintf(" AND entity = $%d", len(args)+1)
		args = append(args, filter.Entity)
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id::text = $%d", len(args)+1)
		args = append(args, filter.UserID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Entity, &entry.EntityID,
			&entry.OldValue, &entry.NewValue, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
