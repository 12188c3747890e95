package driven

import (
	"context"

	"github.com/signalforge/signalforge/internal/domain/model"
)

// QuoteProvider fetches a single-symbol quote from one upstream.
// Upstream failures (auth rejected, unknown symbol, network, timeout) are
// reported in the returned result, never as a Go error or panic.
// creds is nil for providers that do not need credentials.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, creds *model.Credentials, symbol string) model.QuoteResult
}
