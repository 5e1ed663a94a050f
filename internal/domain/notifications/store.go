package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, userID, title, message string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, title, message)
    VALUES ($1,$2,$3)
  `, userID, title, message)
	return err
}

func (s *Store) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
    SELECT id, user_id, title, message, is_read, created_at
    FROM notifications
    WHERE user_id = $1`
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"

	rows, err := s.DB.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID).Scan(&total)
	return total, err
}

// MarkRead flips one notification owned by userID. Marking someone
// else's notification is a no-op, not an error.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET is_read = TRUE
    WHERE user_id = $1 AND id = $2
  `, userID, notificationID)
	return err
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE", userID)
	return err
}

// NotifyUploadOutcome tells the uploader how their sheet fared.
func (s *Store) NotifyUploadOutcome(ctx context.Context, userID, filename string, accepted, rejected int) error {
	title := "Attendance upload processed"
	message := fmt.Sprintf("%s: %d rows accepted, %d rejected.", filename, accepted, rejected)
	if rejected > 0 {
		message += " Download the error report for details."
	}
	return s.Create(ctx, userID, title, message)
}
