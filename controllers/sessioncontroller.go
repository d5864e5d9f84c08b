package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/zarkopopovski/v2v-chat/db"
)

type SessionController struct {
	DBManager *db.DBManager
}

func (sessionController *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	chatSession, err := sessionController.DBManager.CreateSession(r.Context())
	if err != nil {
		writeError(w, r, newError(ErrorStorage, "Could not create session", err))
		return
	}

	writeJSON(w, http.StatusOK, chatSession)
}

func (sessionController *SessionController) ListSessions(w http.ResponseWriter, r *http.Request) {
	chatSessions, err := sessionController.DBManager.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, newError(ErrorStorage, "Could not list sessions", err))
		return
	}

	writeJSON(w, http.StatusOK, chatSessions)
}

func (sessionController *SessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	chatSession, err := sessionController.DBManager.GetSession(r.Context(), sessionID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, newError(ErrorNotFound, "Session not found", err))
		return
	}
	if err != nil {
		writeError(w, r, newError(ErrorStorage, "Could not load session", err))
		return
	}

	writeJSON(w, http.StatusOK, chatSession)
}

// DeleteSession answers 204 whether or not the session existed.
func (sessionController *SessionController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := sessionController.DBManager.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, r, newError(ErrorStorage, "Could not delete session", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func sessionIDFromPath(r *http.Request) (int64, error) {
	raw := r.PathValue("sessionID")
	sessionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, newError(ErrorBadRequest, "Invalid session id", err)
	}
	return sessionID, nil
}
