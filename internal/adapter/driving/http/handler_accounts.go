package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// ListAccounts returns every account of the class, newest first.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	class, ok := pathClass(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.List(r.Context(), class)
	if err != nil {
		h.logger.Error("failed to list accounts", "class", class, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch accounts")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	class, ok := pathClass(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	account, err := h.accounts.Get(r.Context(), class, id)
	if err != nil {
		h.writeAccountError(w, "get", class, id, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// CreateAccount validates the body and creates a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	class, ok := pathClass(w, r)
	if !ok {
		return
	}

	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.Create(r.Context(), class, req.fields())
	if err != nil {
		h.writeAccountError(w, "create", class, "", err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// UpdateAccount replaces all fields of the account named by the body's id.
// Omitted fields are not taken from the stored record.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	class, ok := pathClass(w, r)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	account, err := h.accounts.Update(r.Context(), class, req.ID, req.fields())
	if err != nil {
		h.writeAccountError(w, "update", class, req.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// DeleteAccount removes the account named by the id query parameter.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	class, ok := pathClass(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.accounts.Delete(r.Context(), class, id); err != nil {
		h.writeAccountError(w, "delete", class, id, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeAccountError maps service errors onto status codes.
func (h *Handler) writeAccountError(w http.ResponseWriter, op string, class model.AccountClass, id string, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, driven.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	default:
		h.logger.Error("account operation failed", "op", op, "class", class, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" account")
	}
}

// pathClass parses {class} and writes a 404 for an unknown class.
func pathClass(w http.ResponseWriter, r *http.Request) (model.AccountClass, bool) {
	class, ok := model.ParseAccountClass(r.PathValue("class"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account class")
		return "", false
	}
	return class, true
}
