package whatsapp

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/zapticket/zapticket/internal/repository"
)

// Primary credential document key. It is read synchronously at session start
// and written on every credential update pushed by the gateway.
const (
	CredsCategory = "creds"
	CredsItemID   = "main"
)

// CredStore is the credential store for one gateway session, keyed by
// (session, category, item). Absent items read as nil without error; a nil
// value in a batch write deletes the item.
type CredStore struct {
	repo      repository.CredentialRepository
	sessionID string
}

func NewCredStore(repo repository.CredentialRepository, sessionID string) *CredStore {
	return &CredStore{repo: repo, sessionID: sessionID}
}

func (s *CredStore) SessionID() string {
	return s.sessionID
}

// Get reads the requested items of one category. Items with no stored value
// are simply absent from the result map.
func (s *CredStore) Get(ctx context.Context, category string, itemIDs []string) (map[string][]byte, error) {
	if len(itemIDs) == 0 {
		return map[string][]byte{}, nil
	}
	return s.repo.Get(ctx, s.sessionID, category, itemIDs)
}

// Set applies a batch of writes, category -> item -> value. A nil value
// deletes the item. Writes to distinct items are issued concurrently; the
// batch fails if any single write fails.
func (s *CredStore) Set(ctx context.Context, data map[string]map[string][]byte) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for category, items := range data {
		for itemID, value := range items {
			wg.Add(1)
			go func(category, itemID string, value []byte) {
				defer wg.Done()
				var err error
				if value == nil {
					err = s.repo.Delete(ctx, s.sessionID, category, itemID)
				} else {
					err = s.repo.Upsert(ctx, s.sessionID, category, itemID, value)
				}
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(category, itemID, value)
		}
	}
	wg.Wait()
	return errors.Wrap(firstErr, "credstore batch write")
}

// LoadCreds reads the primary credential document. ok reports whether a
// document exists, distinguishing "never paired" from a storage failure.
func (s *CredStore) LoadCreds(ctx context.Context) (doc []byte, ok bool, err error) {
	items, err := s.repo.Get(ctx, s.sessionID, CredsCategory, []string{CredsItemID})
	if err != nil {
		return nil, false, err
	}
	doc, ok = items[CredsItemID]
	return doc, ok, nil
}

// SaveCreds persists the primary credential document.
func (s *CredStore) SaveCreds(ctx context.Context, doc []byte) error {
	return s.repo.Upsert(ctx, s.sessionID, CredsCategory, CredsItemID, doc)
}

// Purge removes every stored item of the session. Called on logout.
func (s *CredStore) Purge(ctx context.Context) error {
	return s.repo.PurgeSession(ctx, s.sessionID)
}
