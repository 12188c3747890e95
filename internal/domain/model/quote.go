package model

import (
	"encoding/json"
	"strings"
)

// ProviderSelector names the upstream that serves a quote test.
type ProviderSelector string

const (
	// ProviderLicensed is the credentialed brokerage quote API (Longport).
	ProviderLicensed ProviderSelector = "licensed"
	// ProviderPublic is the unauthenticated public market-data API (Yahoo Finance).
	ProviderPublic ProviderSelector = "public"
)

// ParseProviderSelector accepts the canonical selector names and the
// upstream names the console UI uses ("longbridge", "longport", "yahoo").
func ParseProviderSelector(s string) (ProviderSelector, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "licensed", "licensedprovider", "longport", "longbridge":
		return ProviderLicensed, true
	case "public", "publicprovider", "yahoo":
		return ProviderPublic, true
	default:
		return "", false
	}
}

// QuoteRequest is a single quote test. AccountClass and AccountID are only
// meaningful for ProviderLicensed.
type QuoteRequest struct {
	Provider     ProviderSelector `json:"providerSelector" validate:"oneof=licensed public"`
	AccountClass AccountClass     `json:"accountClass" validate:"required_if=Provider licensed"`
	AccountID    string           `json:"accountId" validate:"required_if=Provider licensed"`
	Symbol       string           `json:"symbol" validate:"required"`
}

// QuotePayload is the provider-shaped data of a successful quote. The
// concrete type identifies which provider produced it; callers switch on it
// instead of probing fields.
type QuotePayload interface {
	Provider() ProviderSelector
	json.Marshaler
}

// LicensedQuotes is the licensed provider's security quote list, passed
// through as returned by the SDK.
type LicensedQuotes struct {
	Data json.RawMessage
}

// Provider implements QuotePayload.
func (LicensedQuotes) Provider() ProviderSelector { return ProviderLicensed }

// MarshalJSON emits the upstream document unchanged.
func (p LicensedQuotes) MarshalJSON() ([]byte, error) { return rawOrNull(p.Data), nil }

// PublicQuote is the public provider's chart result, passed through as
// returned by the upstream.
type PublicQuote struct {
	Data json.RawMessage
}

// Provider implements QuotePayload.
func (PublicQuote) Provider() ProviderSelector { return ProviderPublic }

// MarshalJSON emits the upstream document unchanged.
func (p PublicQuote) MarshalJSON() ([]byte, error) { return rawOrNull(p.Data), nil }

func rawOrNull(data json.RawMessage) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	return data
}

// QuoteResult is the envelope returned for every dispatched quote test,
// whichever provider served it and whether or not it succeeded.
type QuoteResult struct {
	Success      bool
	Provider     ProviderSelector
	Payload      QuotePayload
	ErrorMessage string
	ErrorDetail  string
}

// QuoteSucceeded wraps a provider payload in a success envelope.
func QuoteSucceeded(payload QuotePayload) QuoteResult {
	return QuoteResult{
		Success:  true,
		Provider: payload.Provider(),
		Payload:  payload,
	}
}

// QuoteFailed builds a failure envelope. The provider tag is filled in by
// the dispatcher.
func QuoteFailed(message, detail string) QuoteResult {
	return QuoteResult{
		Success:      false,
		ErrorMessage: message,
		ErrorDetail:  detail,
	}
}
