package backlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amtly/amtly/internal/db"
	"github.com/amtly/amtly/internal/router"
)

// Store manages persistence of knowledge gaps.
type Store struct {
	db *db.DB
}

// NewStore creates a new backlog store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const gapColumns = `id, question, language, form_code, reason, chat_id, occurrences, status,
	answer, answered_by, answered_at, created_at, updated_at`

// Record stores the turn as a gap when Classify says it is one. It
// satisfies chat.GapRecorder.
func (s *Store) Record(ctx context.Context, chatID, question string, resp router.Response) error {
	reason, ok := Classify(resp)
	if !ok {
		return nil
	}
	_, err := s.Add(ctx, Gap{
		Question: question,
		Language: string(resp.Language),
		FormCode: resp.FormCode,
		Reason:   reason,
		ChatID:   chatID,
	})
	return err
}

// Add inserts a gap, or bumps the occurrence count of an existing gap with
// the same normalized question. A repeat of an answered gap reopens it;
// retired gaps stay retired.
func (s *Store) Add(ctx context.Context, g Gap) (*Gap, error) {
	norm := Normalize(g.Question)
	if norm == "" {
		return nil, fmt.Errorf("backlog: empty question")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT id FROM knowledge_gaps WHERE normalized = ?`), norm).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.Must(uuid.NewV7()).String()
		_, err = tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO knowledge_gaps (id, question, normalized, language, form_code, reason, chat_id, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			id, strings.TrimSpace(g.Question), norm, g.Language, g.FormCode, g.Reason, g.ChatID, StatusOpen, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting gap: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("looking up gap: %w", err)
	default:
		_, err = tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE knowledge_gaps SET occurrences = occurrences + 1, reason = ?, status = ?, updated_at = ?
			 WHERE id = ? AND status <> ?`),
			g.Reason, StatusOpen, now, id, StatusRetired,
		)
		if err != nil {
			return nil, fmt.Errorf("updating gap: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing gap: %w", err)
	}
	return s.Get(ctx, id)
}

// Get retrieves a gap by its ID.
func (s *Store) Get(ctx context.Context, id string) (*Gap, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT `+gapColumns+` FROM knowledge_gaps WHERE id = ?`), id)
	g, err := scanGap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting gap: %w", err)
	}
	return g, nil
}

// List returns gaps matching the filter, most frequent first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Gap, error) {
	query := `SELECT ` + gapColumns + ` FROM knowledge_gaps WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Reason != "" {
		query += " AND reason = ?"
		args = append(args, filter.Reason)
	}
	if filter.FormCode != "" {
		query += " AND form_code = ?"
		args = append(args, strings.ToUpper(filter.FormCode))
	}

	query += " ORDER BY occurrences DESC, created_at ASC, id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing gaps: %w", err)
	}
	defer rows.Close()

	gaps := []Gap{}
	for rows.Next() {
		g, err := scanGap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning gap: %w", err)
		}
		gaps = append(gaps, *g)
	}
	return gaps, rows.Err()
}

// Answer records an editor's answer for a gap.
func (s *Store) Answer(ctx context.Context, id, answer, answeredBy string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE knowledge_gaps SET answer = ?, answered_by = ?, answered_at = ?, status = ?, updated_at = ?
		 WHERE id = ?`),
		answer, answeredBy, now, StatusAnswered, now, id,
	)
	if err != nil {
		return fmt.Errorf("answering gap: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus changes the status of a gap.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("backlog: invalid status %q", status)
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE knowledge_gaps SET status = ?, updated_at = ? WHERE id = ?`),
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts gaps per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM knowledge_gaps GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting gaps: %w", err)
	}
	defer rows.Close()

	stats := map[Status]int{StatusOpen: 0, StatusAnswered: 0, StatusRetired: 0}
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		stats[st] = n
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGap(row scanner) (*Gap, error) {
	var g Gap
	var answeredAt sql.NullTime
	if err := row.Scan(&g.ID, &g.Question, &g.Language, &g.FormCode, &g.Reason, &g.ChatID,
		&g.Occurrences, &g.Status, &g.Answer, &g.AnsweredBy, &answeredAt, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if answeredAt.Valid {
		t := answeredAt.Time
		g.AnsweredAt = &t
	}
	return &g, nil
}
