package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// TestQuote dispatches a quote test. Provider failures are reported in the
// envelope with status 200; only malformed requests get 400 and unknown
// licensed accounts 404.
func (h *Handler) TestQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, ok := model.ParseProviderSelector(req.ProviderSelector)
	if !ok {
		writeValidationError(w, &application.ValidationError{Fields: map[string]string{
			"providerSelector": "providerSelector must be one of [licensed public]",
		}})
		return
	}

	result, err := h.quotes.Dispatch(r.Context(), model.QuoteRequest{
		Provider:     provider,
		AccountClass: model.AccountClass(req.AccountClass),
		AccountID:    req.AccountID,
		Symbol:       req.Symbol,
	})
	if err != nil {
		var verr *application.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationError(w, verr)
		case errors.Is(err, driven.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			h.logger.Error("quote test failed", "provider", provider, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResultResponse(result))
}
