package longport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/signalforge/signalforge/internal/domain/model"
)

// sdkSession wraps a Longport QuoteContext.
type sdkSession struct {
	qc *quote.QuoteContext
}

func openSDKSession(creds model.Credentials) (session, error) {
	conf, err := config.New(config.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}

	qc, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport connect: %w", err)
	}

	return &sdkSession{qc: qc}, nil
}

// Quote returns the SDK's security quotes marshaled as-is.
func (s *sdkSession) Quote(ctx context.Context, symbols []string) (json.RawMessage, error) {
	quotes, err := s.qc.Quote(ctx, symbols)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return nil, fmt.Errorf("encode longport quotes: %w", err)
	}
	return data, nil
}

func (s *sdkSession) Close() error {
	return s.qc.Close()
}
