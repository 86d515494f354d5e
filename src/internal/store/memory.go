package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"

	"go.uber.org/zap"
)

// MemoryStore is a Repository kept in process memory. A single mutex serializes
// writers, so the (user, code pair) uniqueness holds without a database.
type MemoryStore struct {
	mu  sync.RWMutex
	log *zap.Logger
	now func() time.Time

	users   map[string]model.User
	pairs   []model.CodePair
	pairIdx map[string]int
	reviews []model.CodeReview
	byKey   map[reviewKey]int
	byID    map[string]int
}

type reviewKey struct {
	userID     string
	codePairID string
}

var _ Repository = (*MemoryStore)(nil)
var _ Repository = (*Repositories)(nil)

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[string]model.User),
		pairIdx: make(map[string]int),
		byKey:   make(map[reviewKey]int),
		byID:    make(map[string]int),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return model.ErrConflict
		}
	}
	if _, ok := m.users[u.UserID]; ok {
		return model.ErrConflict
	}
	u.CreatedAt = m.now()
	m.users[u.UserID] = u
	m.log.Info("MemoryStore.CreateUser: success", zap.String("user", u.UserID))
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (m *MemoryStore) InsertCodePairs(_ context.Context, pairs []model.CodePair) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if _, ok := m.pairIdx[p.CodePairID]; ok || seen[p.CodePairID] {
			return 0, fmt.Errorf("code pair %s: %w", p.CodePairID, model.ErrConflict)
		}
		seen[p.CodePairID] = true
	}

	now := m.now()
	for _, p := range pairs {
		p.CreatedAt = now
		m.pairIdx[p.CodePairID] = len(m.pairs)
		m.pairs = append(m.pairs, p)
	}
	m.log.Info("MemoryStore.InsertCodePairs: success", zap.Int("count", len(pairs)))
	return len(pairs), nil
}

func (m *MemoryStore) GetCodePair(_ context.Context, codePairID string) (model.CodePair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.pairIdx[codePairID]
	if !ok {
		return model.CodePair{}, model.ErrNotFound
	}
	return m.pairs[i], nil
}

func (m *MemoryStore) NextUnreviewed(_ context.Context, userID string) (model.CodePair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pairs {
		if _, done := m.byKey[reviewKey{userID, p.CodePairID}]; !done {
			return p, nil
		}
	}
	return model.CodePair{}, model.ErrNotFound
}

func (m *MemoryStore) CountCodePairs(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pairs), nil
}

func (m *MemoryStore) UpsertReview(_ context.Context, rv model.CodeReview) (model.CodeReview, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if i, ok := m.byKey[reviewKey{rv.UserID, rv.CodePairID}]; ok {
		existing := &m.reviews[i]
		existing.Categories = slices.Clone(rv.Categories)
		existing.IsFunctionalityChange = rv.IsFunctionalityChange
		existing.Revision++
		existing.UpdatedAt = now
		return m.copyReview(i), false, nil
	}

	rv.Categories = slices.Clone(rv.Categories)
	rv.Revision = 0
	rv.CreatedAt = now
	rv.UpdatedAt = now
	i := len(m.reviews)
	m.reviews = append(m.reviews, rv)
	m.byKey[reviewKey{rv.UserID, rv.CodePairID}] = i
	m.byID[rv.ReviewID] = i
	return m.copyReview(i), true, nil
}

func (m *MemoryStore) UpdateReview(_ context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.CodeReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[reviewID]
	if !ok {
		return model.CodeReview{}, model.ErrNotFound
	}
	existing := &m.reviews[i]
	existing.Categories = slices.Clone(categories)
	existing.IsFunctionalityChange = isFunctionalityChange
	existing.Revision++
	existing.UpdatedAt = m.now()
	return m.copyReview(i), nil
}

func (m *MemoryStore) GetReview(_ context.Context, userID string, by model.LookupKind, targetID string) (model.CodeReview, model.CodePair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		i  int
		ok bool
	)
	switch by {
	case model.ByReviewID:
		i, ok = m.byID[targetID]
		ok = ok && m.reviews[i].UserID == userID
	case model.ByCodePairID:
		i, ok = m.byKey[reviewKey{userID, targetID}]
	default:
		return model.CodeReview{}, model.CodePair{}, fmt.Errorf("%w: unknown lookup %q", model.ErrValidation, by)
	}
	if !ok {
		return model.CodeReview{}, model.CodePair{}, model.ErrNotFound
	}
	rv := m.copyReview(i)
	return rv, m.pairs[m.pairIdx[rv.CodePairID]], nil
}

func (m *MemoryStore) ListReviews(_ context.Context, userID string) ([]model.ReviewSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.ReviewSummary{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].UserID != userID {
			continue
		}
		out = append(out, model.ReviewSummary{
			ReviewID:   m.reviews[i].ReviewID,
			Categories: slices.Clone(m.reviews[i].Categories),
		})
	}
	return out, nil
}

func (m *MemoryStore) CountReviews(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, rv := range m.reviews {
		if rv.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetCategoryStats(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int)
	for _, rv := range m.reviews {
		for _, c := range rv.Categories {
			out[c]++
		}
	}
	return out, nil
}

func (m *MemoryStore) GetReviewerStats(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int)
	for _, rv := range m.reviews {
		out[rv.UserID]++
	}
	return out, nil
}

func (m *MemoryStore) copyReview(i int) model.CodeReview {
	rv := m.reviews[i]
	rv.Categories = slices.Clone(rv.Categories)
	return rv
}
