package application_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// fakeAccountStore is an in-memory driven.AccountStore.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[model.AccountClass]map[string]model.Account
	seq      int
	order    map[string]int
	listErr  error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts: map[model.AccountClass]map[string]model.Account{},
		order:    map[string]int{},
	}
}

func (s *fakeAccountStore) List(_ context.Context, class model.AccountClass) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []model.Account{}
	for _, a := range s.accounts[class] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out, nil
}

func (s *fakeAccountStore) Get(_ context.Context, class model.AccountClass, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[class][id]
	if !ok {
		return model.Account{}, fmt.Errorf("get %s: %w", id, driven.ErrAccountNotFound)
	}
	return a, nil
}

func (s *fakeAccountStore) Create(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[a.Class] == nil {
		s.accounts[a.Class] = map[string]model.Account{}
	}
	s.seq++
	s.order[a.ID] = s.seq
	s.accounts[a.Class][a.ID] = a
	return nil
}

func (s *fakeAccountStore) Update(_ context.Context, class model.AccountClass, id string, f model.AccountFields) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[class][id]
	if !ok {
		return model.Account{}, fmt.Errorf("update %s: %w", id, driven.ErrAccountNotFound)
	}
	a.Name, a.AppKey, a.AppSecret, a.AccessToken = f.Name, f.AppKey, f.AppSecret, f.AccessToken
	s.accounts[class][id] = a
	return a, nil
}

func (s *fakeAccountStore) Delete(_ context.Context, class model.AccountClass, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[class][id]; !ok {
		return fmt.Errorf("delete %s: %w", id, driven.ErrAccountNotFound)
	}
	delete(s.accounts[class], id)
	return nil
}

// fakeProvider records invocations and returns a canned result, or runs fn
// when set.
type fakeProvider struct {
	calls     atomic.Int32
	result    model.QuoteResult
	fn        func(ctx context.Context, creds *model.Credentials, symbol string) model.QuoteResult
	lastCreds atomic.Pointer[model.Credentials]
}

func (p *fakeProvider) FetchQuote(ctx context.Context, creds *model.Credentials, symbol string) model.QuoteResult {
	p.calls.Add(1)
	p.lastCreds.Store(creds)
	if p.fn != nil {
		return p.fn(ctx, creds, symbol)
	}
	return p.result
}
