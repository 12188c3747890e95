package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
	"github.com/signalforge/signalforge/internal/observability"
)

// QuoteDispatcher routes a quote test to the selected provider and always
// answers with a QuoteResult envelope. It keeps no per-request state, so
// concurrent dispatches never interfere with each other.
type QuoteDispatcher struct {
	accounts  driven.AccountStore
	providers map[model.ProviderSelector]driven.QuoteProvider
	timeout   time.Duration
	validate  *validator.Validate
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewQuoteDispatcher creates a dispatcher. timeout bounds each upstream
// call on top of the caller's context; zero means no extra bound.
// metrics may be nil.
func NewQuoteDispatcher(
	accounts driven.AccountStore,
	licensed driven.QuoteProvider,
	public driven.QuoteProvider,
	timeout time.Duration,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *QuoteDispatcher {
	return &QuoteDispatcher{
		accounts: accounts,
		providers: map[model.ProviderSelector]driven.QuoteProvider{
			model.ProviderLicensed: licensed,
			model.ProviderPublic:   public,
		},
		timeout:  timeout,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch runs one quote test.
//
// A *ValidationError is returned for a malformed request and an error
// wrapping driven.ErrAccountNotFound when the licensed account does not
// exist; in both cases no upstream call is made. Every outcome of the
// upstream call itself, including a panic inside the provider, is reported
// through the returned QuoteResult with a nil error.
func (d *QuoteDispatcher) Dispatch(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error) {
	req.Symbol = strings.TrimSpace(req.Symbol)
	if err := validateStruct(d.validate, req); err != nil {
		return model.QuoteResult{}, err
	}

	var creds *model.Credentials
	if req.Provider == model.ProviderLicensed {
		if !req.AccountClass.Valid() {
			return model.QuoteResult{}, newValidationError("accountClass", "accountClass must be one of [message trading]")
		}

		account, err := d.accounts.Get(ctx, req.AccountClass, req.AccountID)
		if err != nil {
			return model.QuoteResult{}, err
		}
		c := account.Credentials()
		creds = &c
	}

	provider := d.providers[req.Provider]
	if provider == nil {
		return model.QuoteResult{}, fmt.Errorf("no quote provider configured for %q", req.Provider)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	result := d.invoke(ctx, provider, creds, req.Symbol)
	elapsed := time.Since(start)

	result.Provider = req.Provider
	if result.Success && result.Payload == nil {
		result = model.QuoteFailed("provider returned no data", "empty payload on success")
		result.Provider = req.Provider
	}

	d.metrics.ObserveQuote(string(req.Provider), result.Success, elapsed)

	attrs := []any{
		"provider", req.Provider,
		"symbol", req.Symbol,
		"success", result.Success,
		"duration", elapsed.Round(time.Millisecond),
	}
	if req.Provider == model.ProviderLicensed {
		attrs = append(attrs, "account_class", req.AccountClass, "account_id", req.AccountID)
	}
	if result.Success {
		d.logger.Info("quote test completed", attrs...)
	} else {
		d.logger.Warn("quote test failed", append(attrs, "error", result.ErrorMessage)...)
	}

	return result, nil
}

// invoke calls the provider and converts a panic into a failure envelope.
func (d *QuoteDispatcher) invoke(ctx context.Context, p driven.QuoteProvider, creds *model.Credentials, symbol string) (result model.QuoteResult) {
	defer func() {
		if v := recover(); v != nil {
			d.logger.Error("quote provider panicked", "symbol", symbol, "panic", v)
			result = model.QuoteFailed(fmt.Sprint(v), fmt.Sprintf("panic: %v", v))
		}
	}()

	return p.FetchQuote(ctx, creds, symbol)
}
