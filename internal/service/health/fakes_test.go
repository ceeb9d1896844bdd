package health

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/store"
)

// The fakes below are in-memory store implementations mirroring the
// semantics of the Postgres stores, including the set-based recompute and
// the mean rollups, so synchronizer behavior can be verified without a
// database.

type fakeCardStore struct {
	cards map[uuid.UUID]*domain.Card

	recomputeCalls int
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardStore) Create(_ context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	c := *card
	f.cards[card.ID] = &c
	return nil
}

func (f *fakeCardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

func (f *fakeCardStore) Update(_ context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if _, ok := f.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	c := *card
	f.cards[card.ID] = &c
	return nil
}

func (f *fakeCardStore) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	card, ok := f.cards[id]
	if !ok || card.DeletedAt != nil {
		return store.ErrCardNotFound
	}
	t := at
	card.DeletedAt = &t
	return nil
}

func (f *fakeCardStore) SetRetrievability(_ context.Context, id uuid.UUID, value float64) error {
	card, ok := f.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	v := value
	card.Retrievability = &v
	return nil
}

func (f *fakeCardStore) RecomputeHealth(_ context.Context, accountID uuid.UUID, anchor time.Time) error {
	f.recomputeCalls++
	for _, card := range f.cards {
		if card.AccountID != accountID || card.DeletedAt != nil {
			continue
		}
		if card.Stability == nil || *card.Stability <= 0 {
			continue
		}
		reference := card.CreatedAt
		if card.LastReviewedAt != nil {
			reference = *card.LastReviewedAt
		}
		r := srs.Retrievability(*card.Stability, reference, anchor)
		card.Retrievability = &r
	}
	return nil
}

func (f *fakeCardStore) ListActive(
	_ context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, card := range f.cards {
		if card.AccountID != accountID || card.DeletedAt != nil {
			continue
		}
		if deckID != nil && card.DeckID != *deckID {
			continue
		}
		c := *card
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeCardStore) DueCountsByDay(
	_ context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	timezone string,
) ([]store.DailyCount, error) {
	return nil, nil
}

func (f *fakeCardStore) WithTx(*sql.Tx) store.CardStore { return f }

// scoredMean averages retrievability over the account's live, scored cards,
// optionally restricted to one deck.
func (f *fakeCardStore) scoredMean(accountID uuid.UUID, deckID *uuid.UUID) *float64 {
	var sum float64
	var n int
	for _, card := range f.cards {
		if card.AccountID != accountID || card.DeletedAt != nil || card.Retrievability == nil {
			continue
		}
		if deckID != nil && card.DeckID != *deckID {
			continue
		}
		sum += *card.Retrievability
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

type fakeDeckStore struct {
	decks map[uuid.UUID]*domain.Deck
	cards *fakeCardStore

	recomputed []uuid.UUID
}

func newFakeDeckStore(cards *fakeCardStore) *fakeDeckStore {
	return &fakeDeckStore{decks: make(map[uuid.UUID]*domain.Deck), cards: cards}
}

func (f *fakeDeckStore) Create(_ context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return err
	}
	d := *deck
	f.decks[deck.ID] = &d
	return nil
}

func (f *fakeDeckStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Deck, error) {
	deck, ok := f.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	d := *deck
	return &d, nil
}

func (f *fakeDeckStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*domain.Deck, error) {
	var out []*domain.Deck
	for _, deck := range f.decks {
		if deck.AccountID != accountID || deck.DeletedAt != nil {
			continue
		}
		d := *deck
		out = append(out, &d)
	}
	return out, nil
}

func (f *fakeDeckStore) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	deck, ok := f.decks[id]
	if !ok || deck.DeletedAt != nil {
		return store.ErrDeckNotFound
	}
	t := at
	deck.DeletedAt = &t
	return nil
}

func (f *fakeDeckStore) RecomputeHealth(_ context.Context, deckID uuid.UUID) error {
	f.recomputed = append(f.recomputed, deckID)
	deck, ok := f.decks[deckID]
	if !ok || deck.DeletedAt != nil {
		return nil // missing deck is a no-op
	}
	deck.Retrievability = f.cards.scoredMean(deck.AccountID, &deckID)
	return nil
}

func (f *fakeDeckStore) WithTx(*sql.Tx) store.DeckStore { return f }

type fakeAccountStore struct {
	accounts map[uuid.UUID]*domain.Account
	cards    *fakeCardStore

	recomputeCalls int
}

func newFakeAccountStore(cards *fakeCardStore) *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[uuid.UUID]*domain.Account), cards: cards}
}

func (f *fakeAccountStore) Create(_ context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	a := *account
	f.accounts[account.ID] = &a
	return nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	a := *account
	return &a, nil
}

func (f *fakeAccountStore) RecomputeHealth(_ context.Context, accountID uuid.UUID) error {
	f.recomputeCalls++
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Retrievability = f.cards.scoredMean(accountID, nil)
	return nil
}

func (f *fakeAccountStore) UpdateLastHealthSync(_ context.Context, accountID uuid.UUID, at time.Time) error {
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.LastHealthSyncAt = at
	return nil
}

func (f *fakeAccountStore) WithTx(*sql.Tx) store.AccountStore { return f }

type fakeReviewLogStore struct {
	logs []*domain.ReviewLog
}

func (f *fakeReviewLogStore) Append(_ context.Context, log *domain.ReviewLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	l := *log
	f.logs = append(f.logs, &l)
	return nil
}

func (f *fakeReviewLogStore) ListByCard(_ context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	var out []*domain.ReviewLog
	for _, l := range f.logs {
		if l.CardID == cardID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeReviewLogStore) CountsByDay(
	_ context.Context,
	accountID uuid.UUID,
	deckID *uuid.UUID,
	timezone string,
) ([]store.DailyCount, error) {
	return nil, nil
}

func (f *fakeReviewLogStore) WithTx(*sql.Tx) store.ReviewLogStore { return f }

// testEnv bundles a synchronizer wired to in-memory fakes. The transaction
// runner is a pass-through; atomicity is not under test here.
type testEnv struct {
	sync     *synchronizer
	cards    *fakeCardStore
	decks    *fakeDeckStore
	accounts *fakeAccountStore
	logs     *fakeReviewLogStore
}

func newTestEnv() *testEnv {
	cards := newFakeCardStore()
	decks := newFakeDeckStore(cards)
	accounts := newFakeAccountStore(cards)
	logs := &fakeReviewLogStore{}

	s := &synchronizer{
		cards:    cards,
		decks:    decks,
		accounts: accounts,
		logs:     logs,
		model:    srs.NewDefaultModel(),
		logger:   testLogger(),
	}
	s.run = func(ctx context.Context, fn txFn) error {
		return fn(ctx, txStores{cards: cards, decks: decks, accounts: accounts, logs: logs})
	}

	return &testEnv{sync: s, cards: cards, decks: decks, accounts: accounts, logs: logs}
}
