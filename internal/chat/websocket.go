package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/validation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming websocket message format.
type wsRequest struct {
	ChatID   string            `json:"chat_id"` // empty starts a new chat
	Message  string            `json:"message"`
	Language language.Language `json:"language,omitempty"`
}

// wsResponse is the outgoing websocket message format.
type wsResponse struct {
	Type   string            `json:"type"` // "response" or "error"
	ChatID string            `json:"chat_id,omitempty"`
	Reply  *Reply            `json:"reply,omitempty"`
	Error  *validation.Error `json:"error,omitempty"`
}

func handleWebSocket(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svc.logger.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					svc.logger.Warn("websocket read", zap.Error(err))
				}
				return
			}

			var req wsRequest
			resp := wsResponse{Type: "error", Error: validation.New(validation.CodeValidation, "invalid message format")}
			if err := json.Unmarshal(msg, &req); err == nil {
				resp = svc.handleWSMessage(r, req)
			}
			if !send(svc, conn, resp) {
				return
			}
		}
	}
}

func (s *Service) handleWSMessage(r *http.Request, req wsRequest) wsResponse {
	ctx := r.Context()
	chatID := req.ChatID
	if chatID == "" {
		c, err := s.store.CreateChat(ctx, "")
		if err != nil {
			_, body := errorBody(err)
			s.logger.Error("creating chat", zap.Error(err))
			return wsResponse{Type: "error", Error: body}
		}
		chatID = c.ID
	}

	reply, err := s.Send(ctx, chatID, Input{Message: req.Message, Language: req.Language})
	if err != nil {
		status, body := errorBody(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("websocket turn", zap.String("chat", chatID), zap.Error(err))
		}
		return wsResponse{Type: "error", ChatID: chatID, Error: body}
	}
	return wsResponse{Type: "response", ChatID: chatID, Reply: reply}
}

func send(svc *Service, conn *websocket.Conn, resp wsResponse) bool {
	if err := conn.WriteJSON(resp); err != nil {
		svc.logger.Warn("websocket write", zap.Error(err))
		return false
	}
	return true
}
