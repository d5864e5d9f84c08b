package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zarkopopovski/v2v-chat/db"
	"github.com/zarkopopovski/v2v-chat/llm"
	"github.com/zarkopopovski/v2v-chat/models"
)

const (
	maxChatBodySize     = 1 << 20
	notConfiguredDetail = "OpenAI API key not configured on server"
)

// Completer turns a single user message into an assistant reply.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, userText string) (string, error)
}

type ChatController struct {
	DBManager *db.DBManager
	Completer Completer
}

func (chatController *ChatController) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)
	defer r.Body.Close()

	var payload models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, newError(ErrorBadRequest, "Invalid JSON body", err))
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, r, newError(ErrorBadRequest, "message required", nil))
		return
	}

	response, err := chatController.chatTurn(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ChatFromQuery is a GET shortcut for quick tests: /api/gpt?message=...
func (chatController *ChatController) ChatFromQuery(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		writeError(w, r, newError(ErrorBadRequest, "message query param required", nil))
		return
	}

	response, err := chatController.chatTurn(r.Context(), nil, message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// chatTurn resolves the session, asks the completer and only then stores
// the user/assistant pair, so a failed completion leaves no messages behind.
func (chatController *ChatController) chatTurn(ctx context.Context, requestedID *int64, message string) (models.ChatResponse, error) {
	userMessage := strings.TrimSpace(message)

	sessionID, err := chatController.resolveSession(ctx, requestedID)
	if err != nil {
		return models.ChatResponse{}, err
	}

	if chatController.Completer == nil || !chatController.Completer.Configured() {
		return models.ChatResponse{}, newError(ErrorServiceUnavailable, notConfiguredDetail, llm.ErrNotConfigured)
	}

	reply, err := chatController.Completer.Complete(ctx, userMessage)
	if errors.Is(err, llm.ErrNotConfigured) {
		return models.ChatResponse{}, newError(ErrorServiceUnavailable, notConfiguredDetail, err)
	}
	if err != nil {
		return models.ChatResponse{}, newError(ErrorUpstream, err.Error(), err)
	}

	err = chatController.DBManager.AppendMessages(ctx, sessionID, []models.NewMessage{
		{Role: models.RoleUser, Content: userMessage},
		{Role: models.RoleAssistant, Content: reply},
	})
	if errors.Is(err, db.ErrNotFound) {
		return models.ChatResponse{}, newError(ErrorNotFound, "Session not found", err)
	}
	if err != nil {
		return models.ChatResponse{}, newError(ErrorStorage, "Could not store messages", err)
	}

	slog.DebugContext(ctx, "chat turn stored",
		"request_id", RequestID(ctx),
		"session_id", sessionID,
	)

	return models.ChatResponse{Response: reply, SessionID: sessionID}, nil
}

// resolveSession loads the requested session, or creates one when the
// caller sent none (a null or zero id counts as none).
func (chatController *ChatController) resolveSession(ctx context.Context, requestedID *int64) (int64, error) {
	if requestedID != nil && *requestedID != 0 {
		exists, err := chatController.DBManager.SessionExists(ctx, *requestedID)
		if err != nil {
			return 0, newError(ErrorStorage, "Could not load session", err)
		}
		if !exists {
			return 0, newError(ErrorNotFound, "Session not found", db.ErrNotFound)
		}
		return *requestedID, nil
	}

	chatSession, err := chatController.DBManager.CreateSession(ctx)
	if err != nil {
		return 0, newError(ErrorStorage, "Could not create session", err)
	}
	return chatSession.ID, nil
}
