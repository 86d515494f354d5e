package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api"
	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/service"
	"github.com/ce-fello/taxonomy-buddy/src/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T) (*Client, *service.Service) {
	t.Helper()
	logger := zap.NewNop()
	svc := service.NewService(store.NewMemoryStore(logger), logger)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, logger, time.Second), logger))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client()), svc
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, svc := newClient(t)

	_, err := svc.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)

	userID, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	n, err := c.ImportCodePairs(ctx, []model.CodePair{
		{CodePairID: "p1", Version1: "a\nb\n", Version2: "a\nc\n", CommitMessage: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pair, err := c.GetCodePair(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "m", pair.CommitMessage)

	items, err := c.CodePairDiff(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, diff.Unchanged, items[0].Kind)
	assert.Equal(t, diff.Removed, items[1].Kind)
	assert.Equal(t, 2, items[1].OldLine)
	assert.Equal(t, diff.Added, items[2].Kind)

	res, created, err := c.Submit(ctx, userID, "p1", model.Categories{"Other text"}, true)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = c.Submit(ctx, userID, "p1", model.Categories{"Security Fix"}, true)
	require.NoError(t, err)
	assert.False(t, created)

	updated, err := c.UpdateReview(ctx, res.ReviewID, model.Categories{"A", "B"}, false)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewEdited, updated.State)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Categories["A"])
	assert.Equal(t, 1, stats.Reviewers[userID])
}

func TestClient_APIErrorIsDecoded(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Login(context.Background(), "nobody", "pw")

	var apiErr apiErrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.InvalidCredentials, apiErr.Code)

	_, err = c.GetCodePair(context.Background(), "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Progress(context.Background(), "u1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	var apiErr apiErrors.APIError
	assert.False(t, errors.As(err, &apiErr))
}
