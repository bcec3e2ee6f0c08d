package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/db"
)

// ErrChatNotFound is returned when a chat ID does not exist.
var ErrChatNotFound = errors.New("chat: not found")

// Chat is a conversation and the context carried between its turns.
type Chat struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CurrentForm     string    `json:"current_form,omitempty"`
	DocumentContext string    `json:"document_context,omitempty"`
	DocumentName    string    `json:"document_name,omitempty"`
	Language        string    `json:"language,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int       `json:"message_count"`
}

// FileInfo describes an uploaded file attached to a user message.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Message is one stored turn.
type Message struct {
	ID          string         `json:"id"`
	ChatID      string         `json:"chat_id"`
	Role        assembler.Role `json:"role"`
	Content     string         `json:"content"`
	Sources     []string       `json:"sources"`
	MessageType string         `json:"message_type"`
	FileInfo    *FileInfo      `json:"file_info,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ContextUpdate changes chat context. Nil fields are left unchanged.
type ContextUpdate struct {
	CurrentForm     *string `json:"current_form"`
	DocumentContext *string `json:"document_context"`
	DocumentName    *string `json:"document_name"`
	Language        *string `json:"language"`
}

// Store persists chats and messages.
type Store struct {
	db *db.DB
}

// NewStore creates a chat store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CreateChat inserts an empty chat. A blank title gets a time-based name
// until the first user message renames it.
func (s *Store) CreateChat(ctx context.Context, title string) (*Chat, error) {
	now := time.Now().UTC()
	if title == "" {
		title = "Chat " + now.Format("15:04")
	}
	c := &Chat{ID: newID(), Title: capTitle(title), CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`),
		c.ID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return c, nil
}

// GetChat returns a chat with its message count.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT c.id, c.title, c.current_form, c.document_context, c.document_name, c.language,
		        c.created_at, c.updated_at, (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id)
		 FROM chats c WHERE c.id = ?`), id,
	).Scan(&c.ID, &c.Title, &c.CurrentForm, &c.DocumentContext, &c.DocumentName, &c.Language,
		&c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat: %w", err)
	}
	return &c, nil
}

// ListChats returns chats, most recently updated first. Document context is
// left out of the listing.
func (s *Store) ListChats(ctx context.Context, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(
		`SELECT c.id, c.title, c.current_form, c.document_name, c.language, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id)
		 FROM chats c ORDER BY c.updated_at DESC, c.id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.CurrentForm, &c.DocumentName, &c.Language,
			&c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat and its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM chats WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// UpdateContext applies the non-nil fields of u to the chat.
func (s *Store) UpdateContext(ctx context.Context, id string, u ContextUpdate) error {
	c, err := s.GetChat(ctx, id)
	if err != nil {
		return err
	}
	if u.CurrentForm != nil {
		c.CurrentForm = *u.CurrentForm
	}
	if u.DocumentContext != nil {
		c.DocumentContext = *u.DocumentContext
	}
	if u.DocumentName != nil {
		c.DocumentName = *u.DocumentName
	}
	if u.Language != nil {
		c.Language = *u.Language
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE chats SET current_form = ?, document_context = ?, document_name = ?, language = ?, updated_at = ?
		 WHERE id = ?`),
		c.CurrentForm, c.DocumentContext, c.DocumentName, c.Language, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating chat context: %w", err)
	}
	return nil
}

// AddMessage stores a message and touches the chat. The first user message
// of a chat also sets its title.
func (s *Store) AddMessage(ctx context.Context, m Message) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("adding message: %w", err)
	}
	defer tx.Rollback()

	var userMessages int
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT COUNT(*) FROM messages WHERE chat_id = ? AND role = ?`),
		m.ChatID, assembler.RoleUser,
	).Scan(&userMessages)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	m.ID = newID()
	m.CreatedAt = time.Now().UTC()
	if m.Sources == nil {
		m.Sources = []string{}
	}
	if m.MessageType == "" {
		m.MessageType = "chat"
	}
	sources, err := json.Marshal(m.Sources)
	if err != nil {
		return nil, fmt.Errorf("encoding sources: %w", err)
	}
	var fileInfo string
	if m.FileInfo != nil {
		data, err := json.Marshal(m.FileInfo)
		if err != nil {
			return nil, fmt.Errorf("encoding file info: %w", err)
		}
		fileInfo = string(data)
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(
		`UPDATE chats SET updated_at = ? WHERE id = ?`), m.CreatedAt, m.ChatID)
	if err != nil {
		return nil, fmt.Errorf("touching chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrChatNotFound
	}

	_, err = tx.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO messages (id, chat_id, role, content, sources, message_type, file_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.ChatID, m.Role, m.Content, string(sources), m.MessageType, fileInfo, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if m.Role == assembler.RoleUser && userMessages == 0 {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE chats SET title = ? WHERE id = ?`), SmartTitle(m.Content), m.ChatID); err != nil {
			return nil, fmt.Errorf("naming chat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("adding message: %w", err)
	}
	return &m, nil
}

// Messages returns the last limit messages of a chat, oldest first. A
// non-positive limit returns all of them.
func (s *Store) Messages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	query := `SELECT id, chat_id, role, content, sources, message_type, file_info, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{chatID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var (
			m        Message
			sources  string
			fileInfo string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &sources, &m.MessageType, &fileInfo, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil || m.Sources == nil {
			m.Sources = []string{}
		}
		if fileInfo != "" {
			var fi FileInfo
			if json.Unmarshal([]byte(fileInfo), &fi) == nil {
				m.FileInfo = &fi
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// Turns converts stored messages to conversation turns for the router.
func Turns(msgs []Message) []assembler.Turn {
	turns := make([]assembler.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, assembler.Turn{Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt})
	}
	return turns
}
