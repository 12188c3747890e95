// Package longport implements the licensed QuoteProvider on the Longport
// (Longbridge) OpenAPI. Each quote opens its own session and closes it
// before returning; nothing is pooled between calls.
package longport

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.QuoteProvider = (*Adapter)(nil)

// session is one authenticated quote connection.
type session interface {
	Quote(ctx context.Context, symbols []string) (json.RawMessage, error)
	Close() error
}

// opener establishes a session from the account secrets. It may block on
// network I/O and does not observe a context.
type opener func(creds model.Credentials) (session, error)

// Adapter is the licensed quote provider.
type Adapter struct {
	open   opener
	logger *slog.Logger
}

// NewAdapter creates an Adapter backed by the Longport Go SDK.
func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{open: openSDKSession, logger: logger}
}

// FetchQuote opens a session with creds, requests one symbol and closes the
// session on every path. Connect, auth and quote failures are returned as a
// failure envelope carrying the upstream message.
func (a *Adapter) FetchQuote(ctx context.Context, creds *model.Credentials, symbol string) model.QuoteResult {
	if creds == nil {
		return model.QuoteFailed("credentials are required", "licensed provider called without appKey, appSecret and accessToken")
	}

	sess, err := a.openContext(ctx, *creds)
	if err != nil {
		return model.QuoteFailed(err.Error(), "failed to open longport quote session")
	}
	defer a.release(sess, symbol)

	data, err := sess.Quote(ctx, []string{symbol})
	if err != nil {
		return model.QuoteFailed(err.Error(), "longport quote request failed")
	}

	return model.QuoteSucceeded(model.LicensedQuotes{Data: data})
}

// openContext runs the blocking open in a goroutine so ctx can abandon it.
// A session that finishes opening after ctx is done is closed immediately.
func (a *Adapter) openContext(ctx context.Context, creds model.Credentials) (session, error) {
	type opened struct {
		sess session
		err  error
	}

	ch := make(chan opened, 1)
	go func() {
		sess, err := a.open(creds)
		ch <- opened{sess: sess, err: err}
	}()

	select {
	case o := <-ch:
		return o.sess, o.err
	case <-ctx.Done():
		go func() {
			if o := <-ch; o.err == nil && o.sess != nil {
				a.release(o.sess, "")
				a.logger.Debug("closed longport session opened after caller gave up")
			}
		}()
		return nil, ctx.Err()
	}
}

// release closes sess. A failed close is only logged; the quote result is
// already decided.
func (a *Adapter) release(sess session, symbol string) {
	if err := sess.Close(); err != nil {
		a.logger.Debug("failed to close longport session", "symbol", symbol, "error", err)
	}
}
