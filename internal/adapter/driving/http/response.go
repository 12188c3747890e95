package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeValidationError writes a 400 listing every rejected field.
func writeValidationError(w http.ResponseWriter, verr *application.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// AccountRequest is the JSON body for creating an account.
type AccountRequest struct {
	Name        string `json:"name"`
	AppKey      string `json:"appKey"`
	AppSecret   string `json:"appSecret"`
	AccessToken string `json:"accessToken"`
}

func (r AccountRequest) fields() model.AccountFields {
	return model.AccountFields{
		Name:        r.Name,
		AppKey:      r.AppKey,
		AppSecret:   r.AppSecret,
		AccessToken: r.AccessToken,
	}
}

// UpdateAccountRequest is the JSON body for replacing an account.
type UpdateAccountRequest struct {
	ID string `json:"id"`
	AccountRequest
}

// AccountResponse is the JSON representation of an account. Secrets are
// included; callers are already authorised.
type AccountResponse struct {
	ID          string `json:"id"`
	Class       string `json:"accountClass"`
	Name        string `json:"name"`
	AppKey      string `json:"appKey"`
	AppSecret   string `json:"appSecret"`
	AccessToken string `json:"accessToken"`
	CreatedAt   string `json:"createdAt"`
}

// QuoteTestRequest is the JSON body for the quote test endpoint.
type QuoteTestRequest struct {
	ProviderSelector string `json:"providerSelector"`
	AccountClass     string `json:"accountClass"`
	AccountID        string `json:"accountId"`
	Symbol           string `json:"symbol"`
}

// QuoteResultResponse is the JSON envelope for a quote test. Payload is the
// provider's own document, unmodified.
type QuoteResultResponse struct {
	Success          bool               `json:"success"`
	ProviderSelector string             `json:"providerSelector"`
	Payload          model.QuotePayload `json:"payload,omitempty"`
	ErrorMessage     string             `json:"errorMessage,omitempty"`
	ErrorDetail      string             `json:"errorDetail,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SystemResponse is the JSON representation of a host snapshot.
type SystemResponse struct {
	Hostname string `json:"hostname"`
	Platform string `json:"platform"`
	Release  string `json:"release"`
	Arch     string `json:"arch"`
	CPU      struct {
		Model string  `json:"model"`
		Cores int     `json:"cores"`
		Speed float64 `json:"speed"`
	} `json:"cpu"`
	Memory struct {
		Total uint64 `json:"total"`
		Free  uint64 `json:"free"`
		Used  uint64 `json:"used"`
	} `json:"memory"`
	LoadAvg    []float64 `json:"loadAvg"`
	Uptime     int64     `json:"uptime"`
	CapturedAt string    `json:"capturedAt"`
}

// toAccountResponse converts a domain Account to its JSON representation.
func toAccountResponse(a model.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Class:       string(a.Class),
		Name:        a.Name,
		AppKey:      a.AppKey,
		AppSecret:   a.AppSecret,
		AccessToken: a.AccessToken,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// toQuoteResultResponse converts a dispatcher envelope to its JSON representation.
func toQuoteResultResponse(r model.QuoteResult) QuoteResultResponse {
	return QuoteResultResponse{
		Success:          r.Success,
		ProviderSelector: string(r.Provider),
		Payload:          r.Payload,
		ErrorMessage:     r.ErrorMessage,
		ErrorDetail:      r.ErrorDetail,
	}
}

// toSystemResponse converts a host snapshot to its JSON representation.
func toSystemResponse(s model.SystemSnapshot) SystemResponse {
	var resp SystemResponse
	resp.Hostname = s.Hostname
	resp.Platform = s.Platform
	resp.Release = s.Release
	resp.Arch = s.Arch
	resp.CPU.Model = s.CPUModel
	resp.CPU.Cores = s.CPUCores
	resp.CPU.Speed = s.CPUMhz
	resp.Memory.Total = s.MemoryTotal
	resp.Memory.Free = s.MemoryFree
	resp.Memory.Used = s.MemoryUsed
	resp.LoadAvg = s.LoadAvg[:]
	resp.Uptime = int64(s.Uptime.Seconds())
	resp.CapturedAt = s.CapturedAt.UTC().Format(time.RFC3339)
	return resp
}
