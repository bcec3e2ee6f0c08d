// Package chat persists conversations and runs each user turn through the
// router: load history, validate, store, answer, store again.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/extract"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
	"github.com/amtly/amtly/internal/validation"
)

// Options configure a Service.
type Options struct {
	// HistoryLimit is the number of stored messages loaded for each turn.
	HistoryLimit int
	// DocumentChars caps the extracted upload text kept as chat context.
	DocumentChars int
	// UploadDir holds uploads while their text is extracted. Empty means
	// the system temp directory.
	UploadDir string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{HistoryLimit: 12, DocumentChars: 4000}
}

// defaultUploadMessage is the turn sent when a file arrives without text.
const defaultUploadMessage = "explain this"

// Service runs chat turns.
type Service struct {
	store     *Store
	engine    *router.Engine
	validator *validation.Validator
	extractor *extract.Extractor
	opts      Options
	gaps      GapRecorder
	logger    *zap.Logger
}

// GapRecorder is told about every answered turn and keeps the ones the
// sources could not answer.
type GapRecorder interface {
	Record(ctx context.Context, chatID, question string, resp router.Response) error
}

// NewService wires a Service. A nil logger discards output.
func NewService(store *Store, engine *router.Engine, validator *validation.Validator, extractor *extract.Extractor, opts Options, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = def.HistoryLimit
	}
	if opts.DocumentChars <= 0 {
		opts.DocumentChars = def.DocumentChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		engine:    engine,
		validator: validator,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
}

// SetGapRecorder enables knowledge gap recording.
func (s *Service) SetGapRecorder(g GapRecorder) {
	s.gaps = g
}

// Store returns the underlying chat store.
func (s *Service) Store() *Store { return s.store }

// Engine returns the router engine.
func (s *Service) Engine() *router.Engine { return s.engine }

// Input is a user turn as received from a client.
type Input struct {
	Message string `json:"message"`
	// Language optionally pins the reply language for this turn.
	Language language.Language `json:"language,omitempty"`
	File     *FileInfo         `json:"-"`
}

// Reply is the answer to a turn together with what was stored.
type Reply struct {
	router.Response
	ChatID       string `json:"chat_id"`
	MessageID    string `json:"message_id"`
	HTML         string `json:"html,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// Send runs one turn of a chat.
func (s *Service) Send(ctx context.Context, chatID string, in Input) (*Reply, error) {
	if err := s.validator.Message(in.Message); err != nil {
		return nil, err
	}

	c, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// History is read before the new message is stored so it holds prior
	// turns only.
	history, err := s.store.Messages(ctx, chatID, s.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AddMessage(ctx, Message{
		ChatID:   chatID,
		Role:     assembler.RoleUser,
		Content:  in.Message,
		FileInfo: in.File,
	}); err != nil {
		return nil, err
	}

	lang := in.Language
	if lang == "" {
		lang = language.Language(c.Language)
	}
	resp, err := s.engine.Respond(ctx, router.Request{
		Message:  in.Message,
		Language: lang,
		History:  Turns(history),
		Document: c.DocumentContext,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: respond: %w", err)
	}

	stored, err := s.store.AddMessage(ctx, Message{
		ChatID:      chatID,
		Role:        assembler.RoleAssistant,
		Content:     resp.Answer,
		Sources:     resp.Sources,
		MessageType: string(resp.MessageType),
	})
	if err != nil {
		return nil, err
	}

	if resp.FormCode != "" && resp.FormCode != c.CurrentForm {
		form := resp.FormCode
		if err := s.store.UpdateContext(ctx, chatID, ContextUpdate{CurrentForm: &form}); err != nil {
			s.logger.Warn("updating current form", zap.String("chat", chatID), zap.Error(err))
		}
	}

	if s.gaps != nil {
		if err := s.gaps.Record(ctx, chatID, in.Message, resp); err != nil {
			s.logger.Warn("recording knowledge gap", zap.String("chat", chatID), zap.Error(err))
		}
	}

	reply := &Reply{
		Response:     resp,
		ChatID:       chatID,
		MessageID:    stored.ID,
		DocumentName: c.DocumentName,
	}
	if html, err := synth.RenderHTML(resp.Answer); err != nil {
		s.logger.Warn("rendering answer", zap.Error(err))
	} else {
		reply.HTML = html
	}
	return reply, nil
}

// Upload is a file posted to a chat.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
	// Message accompanies the file. Empty means a request to explain it.
	Message  string
	Language language.Language
}

// Upload extracts the text of a file, stores it as the chat's document
// context and runs a turn about it.
func (s *Service) Upload(ctx context.Context, chatID string, up Upload) (*Reply, error) {
	if err := s.validator.Upload(up.Name, up.Size); err != nil {
		return nil, err
	}
	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	name := validation.SafeFilename(up.Name)
	text, err := s.extractUpload(ctx, name, up.Body)
	if err != nil {
		s.logger.Warn("extracting upload", zap.String("file", name), zap.Error(err))
		if errors.Is(err, extract.ErrUnsupported) {
			return nil, validation.New(validation.CodeInvalidFileType, "File type not supported")
		}
		return nil, validation.New(validation.CodeValidation, "Could not read the uploaded file")
	}
	if strings.TrimSpace(text) == "" {
		return nil, validation.New(validation.CodeValidation, "No text could be extracted from the file")
	}

	doc := assembler.Truncate(text, s.opts.DocumentChars)
	if err := s.store.UpdateContext(ctx, chatID, ContextUpdate{DocumentContext: &doc, DocumentName: &name}); err != nil {
		return nil, err
	}

	msg := strings.TrimSpace(up.Message)
	if msg == "" {
		msg = defaultUploadMessage
	}
	return s.Send(ctx, chatID, Input{
		Message:  msg,
		Language: up.Language,
		File:     &FileInfo{Name: name, Size: up.Size, Type: up.ContentType},
	})
}

// extractUpload writes body to a private temp directory, extracts its text
// and removes the file again.
func (s *Service) extractUpload(ctx context.Context, name string, body io.Reader) (string, error) {
	if s.opts.UploadDir != "" {
		if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
			return "", fmt.Errorf("creating upload directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(s.opts.UploadDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}

	return s.extractor.Extract(ctx, path)
}
