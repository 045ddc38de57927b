// Package rest exposes the persistence gateway's write path and the account
// endpoints. This surface is plain request/response plumbing, deliberately
// independent of the real-time relay: saving a message and relaying it are
// separate concerns.
package rest

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"

	"relay-lab/errors"
	"relay-lab/services"
)

type Handler struct {
	log            *slog.Logger
	authService    services.IAuthService
	messageService services.IMessageService
}

func NewHandler(log *slog.Logger, authService services.IAuthService,
	messageService services.IMessageService) *Handler {
	return &Handler{log: log, authService: authService, messageService: messageService}
}

// Mount attaches every REST route onto the mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users/register", h.register)
	mux.HandleFunc("POST /api/users/login", h.login)
	mux.Handle("POST /api/messages", Protect(http.HandlerFunc(h.saveMessage)))
	mux.Handle("GET /api/messages/{userID}", Protect(http.HandlerFunc(h.chatHistory)))
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authService.Register(req.Email, req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

type saveMessageRequest struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

func (h *Handler) saveMessage(w http.ResponseWriter, r *http.Request) {
	var req saveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.SaveMessage(UserID(r), req.Recipient, req.Text)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *Handler) chatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ChatHistory(UserID(r), r.PathValue("userID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case goerrors.Is(err, errors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case goerrors.Is(err, errors.ErrInvalidPassword),
		goerrors.Is(err, errors.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case goerrors.Is(err, errors.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
