package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/validation"
)

// maxUploadMemory is the part of a multipart upload held in memory; the
// rest spills to temp files.
const maxUploadMemory = 8 << 20

// uploadOverhead allows for multipart headers and the message field on top
// of the file size limit.
const uploadOverhead = 1 << 20

// RegisterRoutes mounts the chat, form and websocket endpoints.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/chats", func(r chi.Router) {
		r.Get("/", handleListChats(svc))
		r.Post("/", handleCreateChat(svc))
		r.Get("/{id}", handleGetChat(svc))
		r.Delete("/{id}", handleDeleteChat(svc))
		r.Put("/{id}/context", handleUpdateContext(svc))
		r.Post("/{id}/messages", handleSendMessage(svc))
		r.Post("/{id}/upload", handleUpload(svc))
	})
	r.Route("/api/forms", func(r chi.Router) {
		r.Get("/", handleListForms(svc))
		r.Get("/{code}", handleGetForm(svc))
		r.Get("/{code}/fields/{field}", handleGetField(svc))
	})
	r.Get("/ws/chat", handleWebSocket(svc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a JSON error body. Internal failures are logged
// and reported with a generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func errorBody(err error) (int, *validation.Error) {
	if ve, ok := validation.As(err); ok {
		status := http.StatusBadRequest
		switch ve.Code {
		case validation.CodeNotFound:
			status = http.StatusNotFound
		case validation.CodeFileTooLarge:
			status = http.StatusRequestEntityTooLarge
		case validation.CodeServerError, validation.CodeAPIError:
			status = http.StatusInternalServerError
		}
		return status, ve
	}
	switch {
	case errors.Is(err, ErrChatNotFound):
		return http.StatusNotFound, validation.New(validation.CodeNotFound, "Chat not found")
	case errors.Is(err, forms.ErrFormNotFound):
		return http.StatusNotFound, validation.New(validation.CodeNotFound, "Form not found")
	case errors.Is(err, forms.ErrFieldNotFound):
		return http.StatusNotFound, validation.New(validation.CodeNotFound, "Field not found")
	}
	return http.StatusInternalServerError, validation.New(validation.CodeServerError, "An unexpected error occurred.")
}

func handleListChats(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		chats, err := svc.Store().ListChats(r.Context(), limit)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
	}
}

type createChatRequest struct {
	Title string `json:"title"`
}

func handleCreateChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChatRequest
		// An empty body creates an untitled chat.
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, svc.logger, validation.New(validation.CodeValidation, "invalid request body"))
				return
			}
		}
		c, err := svc.Store().CreateChat(r.Context(), validation.Sanitize(req.Title))
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

type chatWithMessages struct {
	*Chat
	Messages []Message `json:"messages"`
}

func handleGetChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		c, err := svc.Store().GetChat(r.Context(), id)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		msgs, err := svc.Store().Messages(r.Context(), id, 0)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, chatWithMessages{Chat: c, Messages: msgs})
	}
}

func handleDeleteChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Store().DeleteChat(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func handleUpdateContext(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContextUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, svc.logger, validation.New(validation.CodeValidation, "invalid request body"))
			return
		}
		if req.Language != nil && *req.Language != "" && !language.Language(*req.Language).Valid() {
			writeError(w, svc.logger, validation.New(validation.CodeValidation, "unsupported language %q", *req.Language))
			return
		}
		id := chi.URLParam(r, "id")
		if err := svc.Store().UpdateContext(r.Context(), id, req); err != nil {
			writeError(w, svc.logger, err)
			return
		}
		c, err := svc.Store().GetChat(r.Context(), id)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleSendMessage(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, svc.logger, validation.New(validation.CodeValidation, "invalid request body"))
			return
		}
		reply, err := svc.Send(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func handleUpload(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, svc.validator.MaxFileSize()+uploadOverhead)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, svc.logger, svc.validator.FileTooLarge())
				return
			}
			writeError(w, svc.logger, validation.New(validation.CodeValidation, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, svc.logger, validation.New(validation.CodeValidation, "No file provided"))
			return
		}
		defer file.Close()

		reply, err := svc.Upload(r.Context(), chi.URLParam(r, "id"), Upload{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
			Message:     r.FormValue("message"),
			Language:    language.Language(r.FormValue("language")),
		})
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

type formListing struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	Pages    int    `json:"total_pages"`
	Sections int    `json:"sections"`
}

func handleListForms(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog := svc.Engine().Catalog()
		list := make([]formListing, 0, len(catalog.Codes()))
		for _, s := range catalog.Forms() {
			list = append(list, formListing{
				Code:     s.Code,
				Name:     s.Name,
				Purpose:  s.Purpose,
				Pages:    s.TotalPages,
				Sections: len(s.Sections),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"forms": list})
	}
}

type formDetail struct {
	*forms.Schema
	Documents []string              `json:"all_required_documents"`
	Mistakes  []string              `json:"common_mistakes"`
	Checklist []forms.ChecklistItem `json:"checklist"`
}

func handleGetForm(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog := svc.Engine().Catalog()
		code := chi.URLParam(r, "code")
		s, err := catalog.Form(code)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		checklist, err := catalog.CompletionChecklist(code)
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, formDetail{
			Schema:    s,
			Documents: catalog.RequiredDocuments(s.Code),
			Mistakes:  catalog.CommonMistakes(s.Code),
			Checklist: checklist,
		})
	}
}

type fieldDetail struct {
	Form    string       `json:"form"`
	Section string       `json:"section"`
	Field   *forms.Field `json:"field"`
}

func handleGetField(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		f, sec, err := svc.Engine().Catalog().Field(code, chi.URLParam(r, "field"))
		if err != nil {
			writeError(w, svc.logger, err)
			return
		}
		s, _ := svc.Engine().Catalog().Form(code)
		writeJSON(w, http.StatusOK, fieldDetail{Form: s.Code, Section: sec.Code, Field: f})
	}
}
