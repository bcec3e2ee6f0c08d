package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/db"
	"github.com/amtly/amtly/internal/extract"
	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/knowledge"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/llm/llmtest"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
	"github.com/amtly/amtly/internal/validation"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func newService(t *testing.T) (*Service, *llmtest.MockProvider) {
	t.Helper()
	catalog, err := forms.Load()
	require.NoError(t, err)

	provider := llmtest.NewMockProvider("mock")
	engine := router.NewEngine(
		language.NewResolver(language.English, nil),
		knowledge.NewFormAdapter(catalog),
		nil,
		assembler.New(assembler.DefaultLimits()),
		synth.New(provider, synth.DefaultOptions(), nil),
		nil,
	)
	svc := NewService(
		newStore(t),
		engine,
		validation.NewValidator(0, 0, nil),
		extract.New(),
		Options{UploadDir: t.TempDir()},
		nil,
	)
	return svc, provider
}

func TestStoreCreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.Title, "Chat "))

	got, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, 0, got.MessageCount)

	_, err = s.GetChat(ctx, "missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestStoreFirstUserMessageNamesChat(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "")
	require.NoError(t, err)

	_, err = s.AddMessage(ctx, Message{ChatID: c.ID, Role: assembler.RoleUser, Content: "Wie beantrage ich Bürgergeld?"})
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, Message{ChatID: c.ID, Role: assembler.RoleUser, Content: "Und die Miete?"})
	require.NoError(t, err)

	got, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bürgergeld Help", got.Title)
	assert.Equal(t, 2, got.MessageCount)
}

func TestStoreMessagesLimitKeepsLatest(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "t")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three", "four"} {
		_, err := s.AddMessage(ctx, Message{ChatID: c.ID, Role: assembler.RoleUser, Content: content})
		require.NoError(t, err)
	}
	_, err = s.AddMessage(ctx, Message{
		ChatID:      c.ID,
		Role:        assembler.RoleAssistant,
		Content:     "five",
		Sources:     []string{"Merkblatt"},
		MessageType: "form",
	})
	require.NoError(t, err)

	msgs, err := s.Messages(ctx, c.ID, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "three", msgs[0].Content)
	assert.Equal(t, "five", msgs[2].Content)
	assert.Equal(t, []string{"Merkblatt"}, msgs[2].Sources)
	assert.Equal(t, "form", msgs[2].MessageType)
	assert.Equal(t, []string{}, msgs[0].Sources)

	all, err := s.Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStoreAddMessageUnknownChat(t *testing.T) {
	s := newStore(t)
	_, err := s.AddMessage(context.Background(), Message{ChatID: "missing", Role: assembler.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestStoreUpdateContextIsPartial(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "t")
	require.NoError(t, err)

	form, doc := "KDU", "Mietvertrag"
	require.NoError(t, s.UpdateContext(ctx, c.ID, ContextUpdate{CurrentForm: &form, DocumentContext: &doc}))
	lang := "de"
	require.NoError(t, s.UpdateContext(ctx, c.ID, ContextUpdate{Language: &lang}))

	got, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "KDU", got.CurrentForm)
	assert.Equal(t, "Mietvertrag", got.DocumentContext)
	assert.Equal(t, "de", got.Language)

	assert.ErrorIs(t, s.UpdateContext(ctx, "missing", ContextUpdate{}), ErrChatNotFound)
}

func TestStoreDeleteChat(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "t")
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, Message{ChatID: c.ID, Role: assembler.RoleUser, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(ctx, c.ID))
	assert.ErrorIs(t, s.DeleteChat(ctx, c.ID), ErrChatNotFound)

	msgs, err := s.Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	chats, err := s.ListChats(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestSmartTitle(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"Wie beantrage ich Bürgergeld?", "Bürgergeld Help"},
		{"Feld 17 im HA", "HA Form"},
		{"what is the deadline", "Info Request"},
		{"How much money do I get?", "Amount Questions"},
		{"Kindergeld und Elterngeld", "Kindergeld Help"},
		{"ok", "New Chat"},
		{"Supercalifragilisticexpialidociousandevenlongerthanfiftyrunes", "Supercalifragilisticexpialidociousandevenlongertha"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, SmartTitle(tt.msg))
		})
	}
}

func TestServiceSendStoresBothTurns(t *testing.T) {
	svc, provider := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	reply, err := svc.Send(ctx, c.ID, Input{Message: "feld 17 HA"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, reply.ChatID)
	assert.Equal(t, "HA", reply.FormCode)
	assert.Contains(t, reply.Answer, "IBAN")
	assert.Contains(t, reply.HTML, "<strong>")
	assert.Equal(t, 1, provider.CallCount())

	msgs, err := svc.Store().Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, assembler.RoleUser, msgs[0].Role)
	assert.Equal(t, assembler.RoleAssistant, msgs[1].Role)
	assert.Equal(t, string(router.MessageForm), msgs[1].MessageType)
	assert.Equal(t, reply.MessageID, msgs[1].ID)

	got, err := svc.Store().GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "HA", got.CurrentForm)
	assert.Equal(t, "HA Form", got.Title)
}

func TestServiceSendCarriesHistory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	_, err = svc.Send(ctx, c.ID, Input{Message: "feld 17 HA"})
	require.NoError(t, err)

	reply, err := svc.Send(ctx, c.ID, Input{Message: "what about field 20?"})
	require.NoError(t, err)
	assert.Equal(t, router.TargetForm, reply.Decision.Target)
	assert.Equal(t, "HA", reply.Decision.FormCode)
	assert.Equal(t, "20", reply.Decision.Field)
}

func TestServiceSendRejectsInvalidMessage(t *testing.T) {
	svc, provider := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	_, err = svc.Send(ctx, c.ID, Input{Message: "   "})
	ve, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.CodeEmptyMessage, ve.Code)

	_, err = svc.Send(ctx, c.ID, Input{Message: "<script>alert(1)</script>"})
	ve, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.CodeSuspiciousContent, ve.Code)

	assert.Equal(t, 0, provider.CallCount())
	msgs, err := svc.Store().Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestServiceSendUsesChatLanguage(t *testing.T) {
	svc, provider := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)
	de := "de"
	require.NoError(t, svc.Store().UpdateContext(ctx, c.ID, ContextUpdate{Language: &de}))

	reply, err := svc.Send(ctx, c.ID, Input{Message: "ok"})
	require.NoError(t, err)
	assert.Equal(t, language.German, reply.Language)
	assert.Contains(t, provider.LastRequest().System(), "Deutsch")
}

type recordedGap struct {
	chatID, question string
	resp             router.Response
}

type gapRecorder struct{ calls []recordedGap }

func (g *gapRecorder) Record(_ context.Context, chatID, question string, resp router.Response) error {
	g.calls = append(g.calls, recordedGap{chatID, question, resp})
	return nil
}

func TestServiceSendReportsTurnsToGapRecorder(t *testing.T) {
	svc, provider := newService(t)
	gaps := &gapRecorder{}
	svc.SetGapRecorder(gaps)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	provider.Err = errors.New("service down")
	reply, err := svc.Send(ctx, c.ID, Input{Message: "Who pays for my glasses?"})
	require.NoError(t, err)
	assert.True(t, reply.Degraded)
	assert.Equal(t, synth.Apology(language.English), reply.Answer)

	require.Len(t, gaps.calls, 1)
	assert.Equal(t, c.ID, gaps.calls[0].chatID)
	assert.Equal(t, "Who pays for my glasses?", gaps.calls[0].question)
	assert.True(t, gaps.calls[0].resp.Degraded)
}

func TestServiceUploadAnalysesDocument(t *testing.T) {
	svc, provider := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	body := "Bitte reichen Sie die Kontoauszüge bis zum 30.11.2026 ein."
	reply, err := svc.Upload(ctx, c.ID, Upload{
		Name:        "../Bescheid vom Amt.txt",
		Size:        int64(len(body)),
		ContentType: "text/plain",
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, router.MessageDocument, reply.MessageType)
	assert.Equal(t, "Bescheid_vom_Amt.txt", reply.DocumentName)
	req := provider.LastRequest()
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "Kontoauszüge")

	got, err := svc.Store().GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, body, got.DocumentContext)

	msgs, err := svc.Store().Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].FileInfo)
	assert.Equal(t, "Bescheid_vom_Amt.txt", msgs[0].FileInfo.Name)
	assert.Equal(t, defaultUploadMessage, msgs[0].Content)
}

func TestServiceUploadRejectsFileType(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Store().CreateChat(ctx, "")
	require.NoError(t, err)

	_, err = svc.Upload(ctx, c.ID, Upload{Name: "run.exe", Size: 3, Body: strings.NewReader("MZ!")})
	ve, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.CodeInvalidFileType, ve.Code)

	_, err = svc.Upload(ctx, c.ID, Upload{Name: "empty.txt", Size: 3, Body: strings.NewReader("   ")})
	ve, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.CodeValidation, ve.Code)
}

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()
	svc, _ := newService(t)
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	return r, svc
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutesChatLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/chats", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var c Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.NotEmpty(t, c.ID)

	rec = doJSON(t, r, http.MethodPost, "/api/chats/"+c.ID+"/messages", `{"message":"Tell me about the KDU form"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, c.ID, reply["chat_id"])
	assert.Equal(t, "KDU", reply["form_code"])
	assert.Equal(t, "form", reply["message_type"])

	rec = doJSON(t, r, http.MethodGet, "/api/chats/"+c.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Title    string    `json:"title"`
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Len(t, detail.Messages, 2)
	assert.Equal(t, "KDU Form", detail.Title)

	rec = doJSON(t, r, http.MethodGet, "/api/chats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), c.ID)

	rec = doJSON(t, r, http.MethodDelete, "/api/chats/"+c.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/chats/"+c.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Chat not found","code":"not_found"}`, rec.Body.String())
}

func TestRoutesMessageValidation(t *testing.T) {
	r, svc := newTestRouter(t)
	c, err := svc.Store().CreateChat(context.Background(), "")
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodPost, "/api/chats/"+c.ID+"/messages", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"empty_message"`)

	rec = doJSON(t, r, http.MethodPost, "/api/chats/"+c.ID+"/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation_error"`)
}

func TestRoutesUpdateContext(t *testing.T) {
	r, svc := newTestRouter(t)
	c, err := svc.Store().CreateChat(context.Background(), "")
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodPut, "/api/chats/"+c.ID+"/context", `{"current_form":"VM","language":"de"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current_form":"VM"`)

	rec = doJSON(t, r, http.MethodPut, "/api/chats/"+c.ID+"/context", `{"language":"fr"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesUpload(t *testing.T) {
	r, svc := newTestRouter(t)
	c, err := svc.Store().CreateChat(context.Background(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "letter.md")
	require.NoError(t, err)
	_, err = fw.Write([]byte("# Anhörung\n\nBitte äußern Sie sich bis Freitag."))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("message", "translate"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chats/"+c.ID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"message_type":"document"`)
	assert.Contains(t, rec.Body.String(), `"document_name":"letter.md"`)

	rec = doJSON(t, r, http.MethodPost, "/api/chats/"+c.ID+"/upload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesUploadRejectsOversizedBody(t *testing.T) {
	r, svc := newTestRouter(t)
	svc.validator = validation.NewValidator(0, 1024, nil)
	c, err := svc.Store().CreateChat(context.Background(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "big.txt")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("a"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chats/"+c.ID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"file_too_large"`)
}

func TestRoutesForms(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/forms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Forms []formListing `json:"forms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Forms, 5)
	assert.Equal(t, "HA", list.Forms[0].Code)

	rec = doJSON(t, r, http.MethodGet, "/api/forms/kdu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"KDU"`)
	assert.Contains(t, rec.Body.String(), "Not signing the form")

	rec = doJSON(t, r, http.MethodGet, "/api/forms/HA/fields/17", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var field fieldDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &field))
	assert.Equal(t, "IBAN", field.Field.Label)
	assert.Equal(t, "A", field.Section)

	rec = doJSON(t, r, http.MethodGet, "/api/forms/HA/fields/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/forms/XYZ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketChat(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsRequest{Message: "feld 17 HA"}))
	var resp wsResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	require.NotEmpty(t, resp.ChatID)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "HA", resp.Reply.FormCode)

	require.NoError(t, conn.WriteJSON(wsRequest{ChatID: resp.ChatID, Message: ""}))
	resp = wsResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	require.NotNil(t, resp.Error)
	assert.Equal(t, validation.CodeEmptyMessage, resp.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	resp = wsResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
}
