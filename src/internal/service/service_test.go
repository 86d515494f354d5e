package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockRepositories struct {
	mock.Mock
}

func (m *MockRepositories) CreateUser(ctx context.Context, u model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) InsertCodePairs(ctx context.Context, pairs []model.CodePair) (int, error) {
	args := m.Called(ctx, pairs)
	return args.Int(0), args.Error(1)
}

func (m *MockRepositories) GetCodePair(ctx context.Context, codePairID string) (model.CodePair, error) {
	args := m.Called(ctx, codePairID)
	return args.Get(0).(model.CodePair), args.Error(1)
}

func (m *MockRepositories) NextUnreviewed(ctx context.Context, userID string) (model.CodePair, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.CodePair), args.Error(1)
}

func (m *MockRepositories) CountCodePairs(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepositories) UpsertReview(ctx context.Context, r model.CodeReview) (model.CodeReview, bool, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(model.CodeReview), args.Bool(1), args.Error(2)
}

func (m *MockRepositories) UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.CodeReview, error) {
	args := m.Called(ctx, reviewID, categories, isFunctionalityChange)
	return args.Get(0).(model.CodeReview), args.Error(1)
}

func (m *MockRepositories) GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.CodeReview, model.CodePair, error) {
	args := m.Called(ctx, userID, by, targetID)
	return args.Get(0).(model.CodeReview), args.Get(1).(model.CodePair), args.Error(2)
}

func (m *MockRepositories) ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ReviewSummary), args.Error(1)
}

func (m *MockRepositories) CountReviews(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepositories) GetCategoryStats(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRepositories) GetReviewerStats(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int), args.Error(1)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func createTestService() (*Service, *MockRepositories) {
	mockRepo := new(MockRepositories)
	service := &Service{
		repo:     mockRepo,
		log:      zap.NewNop(),
		newID:    sequentialIDs("id-"),
		hashCost: bcrypt.MinCost,
	}
	return service, mockRepo
}

func createMemoryService(t *testing.T, pairs ...string) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore(zap.NewNop())
	service := &Service{
		repo:     mem,
		log:      zap.NewNop(),
		newID:    sequentialIDs("id-"),
		hashCost: bcrypt.MinCost,
	}
	ctx := context.Background()
	require.NoError(t, mem.CreateUser(ctx, model.User{UserID: "u1", Username: "alice"}))
	if len(pairs) > 0 {
		var cps []model.CodePair
		for _, id := range pairs {
			cps = append(cps, model.CodePair{CodePairID: id, Version1: "a\nb\n", Version2: "a\nc\n", CommitMessage: "msg " + id})
		}
		_, err := mem.InsertCodePairs(ctx, cps)
		require.NoError(t, err)
	}
	return service, mem
}

func codeOf(t *testing.T, err error) apiErrors.ErrorCode {
	t.Helper()
	var e apiErrors.APIError
	require.True(t, errors.As(err, &e), "expected APIError, got %v", err)
	return e.Code
}

func TestLogin_Success(t *testing.T) {
	service, mockRepo := createTestService()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	mockRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(model.User{UserID: "u1", Username: "alice", PasswordHash: string(hash)}, nil)

	userID, err := service.Login(context.Background(), "alice", "secret")

	assert.NoError(t, err)
	assert.Equal(t, "u1", userID)
	mockRepo.AssertExpectations(t)
}

func TestLogin_WrongPasswordAndUnknownUserLookTheSame(t *testing.T) {
	service, mockRepo := createTestService()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	mockRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(model.User{UserID: "u1", Username: "alice", PasswordHash: string(hash)}, nil)
	mockRepo.On("GetUserByUsername", mock.Anything, "nobody").
		Return(model.User{}, model.ErrNotFound)

	_, wrongPwd := service.Login(context.Background(), "alice", "nope")
	_, unknown := service.Login(context.Background(), "nobody", "secret")

	assert.Equal(t, apiErrors.InvalidCredentials, codeOf(t, wrongPwd))
	assert.Equal(t, wrongPwd, unknown)
}

func TestLogin_BlankCredentialsAreInvalid(t *testing.T) {
	service, mockRepo := createTestService()

	_, noPwd := service.Login(context.Background(), "alice", "")
	_, noUser := service.Login(context.Background(), "", "secret")

	assert.Equal(t, apiErrors.InvalidCredentials, codeOf(t, noPwd))
	assert.Equal(t, apiErrors.InvalidCredentials, codeOf(t, noUser))
	mockRepo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
}

func TestLogin_StorageFailurePassesThrough(t *testing.T) {
	service, mockRepo := createTestService()

	boom := errors.New("connection refused")
	mockRepo.On("GetUserByUsername", mock.Anything, "alice").Return(model.User{}, boom)

	_, err := service.Login(context.Background(), "alice", "secret")

	assert.ErrorIs(t, err, boom)
	var e apiErrors.APIError
	assert.False(t, errors.As(err, &e))
}

func TestCreateUser_HashesPassword(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.UserID == "id-1" && u.Username == "bob" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) == nil
	})).Return(nil)

	u, err := service.CreateUser(context.Background(), "  bob ", "pw")

	assert.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	mockRepo.AssertExpectations(t)
}

func TestCreateUser_Duplicate(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("model.User")).Return(model.ErrConflict)

	_, err := service.CreateUser(context.Background(), "bob", "pw")

	assert.Equal(t, apiErrors.Conflict, codeOf(t, err))
}

func TestCreateUser_Validation(t *testing.T) {
	service, mockRepo := createTestService()

	_, err := service.CreateUser(context.Background(), " ", "pw")

	assert.Equal(t, apiErrors.ValidationFailed, codeOf(t, err))
	mockRepo.AssertNotCalled(t, "CreateUser")
}

func TestNextOrLatest_New(t *testing.T) {
	service, mockRepo := createTestService()

	pair := model.CodePair{CodePairID: "p1", Version1: "a", Version2: "b", CommitMessage: "fix", ProjectName: "proj"}
	mockRepo.On("NextUnreviewed", mock.Anything, "u1").Return(pair, nil)

	next, err := service.NextOrLatest(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, model.NextNew, next.Type)
	require.NotNil(t, next.CodePair)
	assert.Equal(t, pair.Body(), *next.CodePair)
}

func TestNextOrLatest_Completed(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("NextUnreviewed", mock.Anything, "u1").Return(model.CodePair{}, model.ErrNotFound)

	next, err := service.NextOrLatest(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, model.NextCompleted, next.Type)
	assert.Nil(t, next.CodePair)
}

func TestNextCodePair_ExhaustedIsNotFound(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("NextUnreviewed", mock.Anything, "u1").Return(model.CodePair{}, model.ErrNotFound)

	_, err := service.NextCodePair(context.Background(), "u1")

	assert.Equal(t, apiErrors.NotFound, codeOf(t, err))
}

func TestSubmit_CreatesReview(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetUser", mock.Anything, "u1").Return(model.User{UserID: "u1"}, nil)
	mockRepo.On("GetCodePair", mock.Anything, "p1").Return(model.CodePair{CodePairID: "p1"}, nil)
	mockRepo.On("UpsertReview", mock.Anything, mock.MatchedBy(func(r model.CodeReview) bool {
		return r.ReviewID == "id-1" && r.UserID == "u1" && r.CodePairID == "p1" &&
			assert.ObjectsAreEqual(model.Categories{"Security Fix", "custom"}, r.Categories)
	})).Return(model.CodeReview{
		ReviewID: "id-1", UserID: "u1", CodePairID: "p1",
		Categories: model.Categories{"Security Fix", "custom"}, IsFunctionalityChange: true,
	}, true, nil)

	res, created, err := service.Submit(context.Background(), SubmitInput{
		UserID: "u1", CodePairID: "p1",
		Categories:            model.Categories{" Security Fix ", "custom", "Security Fix"},
		IsFunctionalityChange: true,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "id-1", res.ReviewID)
	assert.Equal(t, model.ReviewSubmitted, res.State)
	mockRepo.AssertExpectations(t)
}

func TestSubmit_EmptyCategoriesRejected(t *testing.T) {
	service, mockRepo := createTestService()

	_, _, err := service.Submit(context.Background(), SubmitInput{UserID: "u1", CodePairID: "p1", Categories: model.Categories{"  "}})

	assert.Equal(t, apiErrors.ValidationFailed, codeOf(t, err))
	mockRepo.AssertNotCalled(t, "UpsertReview")
}

func TestSubmit_UnknownCodePair(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetUser", mock.Anything, "u1").Return(model.User{UserID: "u1"}, nil)
	mockRepo.On("GetCodePair", mock.Anything, "missing").Return(model.CodePair{}, model.ErrNotFound)

	_, _, err := service.Submit(context.Background(), SubmitInput{UserID: "u1", CodePairID: "missing", Categories: model.Categories{"Other"}})

	assert.Equal(t, apiErrors.NotFound, codeOf(t, err))
	mockRepo.AssertNotCalled(t, "UpsertReview")
}

func TestUpdateReview_NotFound(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("UpdateReview", mock.Anything, "r9", model.Categories{"A"}, false).Return(model.CodeReview{}, model.ErrNotFound)

	_, err := service.UpdateReview(context.Background(), "r9", model.Categories{"A"}, false)

	assert.Equal(t, apiErrors.NotFound, codeOf(t, err))
}

func TestGetReview_BadLookupKind(t *testing.T) {
	service, mockRepo := createTestService()

	_, err := service.GetReview(context.Background(), "u1", model.LookupKind("nope"), "x")

	assert.Equal(t, apiErrors.ValidationFailed, codeOf(t, err))
	mockRepo.AssertNotCalled(t, "GetReview")
}

func TestGetReview_DefaultsToReviewID(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetReview", mock.Anything, "u1", model.ByReviewID, "r1").Return(
		model.CodeReview{ReviewID: "r1", CodePairID: "p1", Categories: model.Categories{"A"}, Revision: 2, IsFunctionalityChange: true},
		model.CodePair{CodePairID: "p1", Version1: "x", Version2: "y", CommitMessage: "m"},
		nil,
	)

	d, err := service.GetReview(context.Background(), "u1", "", "r1")

	require.NoError(t, err)
	assert.Equal(t, model.ReviewEdited, d.State)
	assert.Equal(t, "p1", d.CodePair.CodePairID)
	assert.True(t, d.CodePair.IsFunctionalityChange)
}

func TestProgress(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CountCodePairs", mock.Anything).Return(10, nil)
	mockRepo.On("CountReviews", mock.Anything, "u1").Return(4, nil)

	p, err := service.Progress(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, model.Progress{Total: 10, Completed: 4, Remaining: 6}, p)
}

func TestImportCodePairs_AssignsMissingIDs(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("InsertCodePairs", mock.Anything, mock.MatchedBy(func(ps []model.CodePair) bool {
		return len(ps) == 2 && ps[0].CodePairID == "keep" && ps[1].CodePairID == "id-1"
	})).Return(2, nil)

	n, err := service.ImportCodePairs(context.Background(), []model.CodePair{{CodePairID: "keep"}, {}})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	mockRepo.AssertExpectations(t)
}

func TestImportCodePairs_EmptyAndConflict(t *testing.T) {
	service, mockRepo := createTestService()

	_, err := service.ImportCodePairs(context.Background(), nil)
	assert.Equal(t, apiErrors.ValidationFailed, codeOf(t, err))

	mockRepo.On("InsertCodePairs", mock.Anything, mock.Anything).Return(0, fmt.Errorf("code pair p1: %w", model.ErrConflict))
	_, err = service.ImportCodePairs(context.Background(), []model.CodePair{{CodePairID: "p1"}})
	assert.Equal(t, apiErrors.Conflict, codeOf(t, err))
}

func TestGetStats(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetCategoryStats", mock.Anything).Return(map[string]int{"A": 2}, nil)
	mockRepo.On("GetReviewerStats", mock.Anything).Return(map[string]int{"u1": 2}, nil)

	stats, err := service.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2}, stats.Categories)
	assert.Equal(t, map[string]int{"u1": 2}, stats.Reviewers)
}

func TestCodePairDiff(t *testing.T) {
	service, _ := createMemoryService(t, "p1")

	items, err := service.CodePairDiff(context.Background(), "p1")
	require.NoError(t, err)

	added, removed := diff.Stats(items)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)

	_, err = service.CodePairDiff(context.Background(), "missing")
	assert.Equal(t, apiErrors.NotFound, codeOf(t, err))
}

func TestWalkThroughAllPairs(t *testing.T) {
	ctx := context.Background()
	service, _ := createMemoryService(t, "p1", "p2", "p3")

	var seen []string
	for {
		next, err := service.NextOrLatest(ctx, "u1")
		require.NoError(t, err)
		if next.Type == model.NextCompleted {
			break
		}
		seen = append(seen, next.CodePair.CodePairID)

		progress, err := service.Progress(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, progress.Total, progress.Completed+progress.Remaining)

		_, created, err := service.Submit(ctx, SubmitInput{
			UserID: "u1", CodePairID: next.CodePair.CodePairID, Categories: model.Categories{"Other"},
		})
		require.NoError(t, err)
		assert.True(t, created)
	}

	assert.Equal(t, []string{"p1", "p2", "p3"}, seen)

	progress, err := service.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.Progress{Total: 3, Completed: 3, Remaining: 0}, progress)
}

func TestResubmitKeepsOneReviewAndLastWriteWins(t *testing.T) {
	ctx := context.Background()
	service, _ := createMemoryService(t, "p1", "p2")

	first, created, err := service.Submit(ctx, SubmitInput{UserID: "u1", CodePairID: "p1", Categories: model.Categories{"A"}})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := service.Submit(ctx, SubmitInput{
		UserID: "u1", CodePairID: "p1", Categories: model.Categories{"B", "C"}, IsFunctionalityChange: true,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ReviewID, second.ReviewID)
	assert.Equal(t, model.ReviewEdited, second.State)

	list, err := service.ListReviews(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.Categories{"B", "C"}, list[0].Categories)

	d, err := service.GetReview(ctx, "u1", model.ByCodePairID, "p1")
	require.NoError(t, err)
	assert.True(t, d.IsFunctionalityChange)

	next, err := service.NextOrLatest(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "p2", next.CodePair.CodePairID)
}

func TestConcurrentSubmitsCollapse(t *testing.T) {
	ctx := context.Background()
	service, _ := createMemoryService(t, "p1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := service.Submit(ctx, SubmitInput{
				UserID: "u1", CodePairID: "p1", Categories: model.Categories{fmt.Sprintf("c%d", i)},
			})
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	progress, err := service.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Completed)
}
