package service

import (
	"context"
	"testing"

	"promptlime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerPromptRepo models the like ledger and counter of a single prompt.
func ledgerPromptRepo(likes int64) (*promptRepoStub, *int64) {
	ledger := map[uint]bool{}
	repo := noopPromptRepo()
	repo.setLikedFn = func(_ context.Context, userID, _ uint, liked bool) (int64, error) {
		if ledger[userID] == liked {
			return likes, nil
		}
		ledger[userID] = liked
		if liked {
			likes++
		} else if likes > 0 {
			likes--
		}
		return likes, nil
	}
	repo.isLikedFn = func(_ context.Context, userID, _ uint) (bool, error) {
		return ledger[userID], nil
	}
	return repo, &likes
}

func TestEngagementService_LikeRoundTrip(t *testing.T) {
	repo, likes := ledgerPromptRepo(10)
	svc := NewEngagementService(repo)

	res, err := svc.SetLike(context.Background(), 1, 5, true)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(11), res.Likes)

	res, err = svc.SetLike(context.Background(), 1, 5, false)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, int64(10), res.Likes)
	assert.Equal(t, int64(10), *likes)
}

func TestEngagementService_RepeatedLikeIsNoop(t *testing.T) {
	repo, likes := ledgerPromptRepo(0)
	svc := NewEngagementService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.SetLike(context.Background(), 1, 5, true)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), *likes)

	for i := 0; i < 3; i++ {
		_, err := svc.SetLike(context.Background(), 1, 5, false)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), *likes)
}

func TestEngagementService_LikeRequiresUser(t *testing.T) {
	svc := NewEngagementService(noopPromptRepo())
	_, err := svc.SetLike(context.Background(), 0, 5, true)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestEngagementService_RecordView(t *testing.T) {
	repo := noopPromptRepo()
	var views int64 = 41
	repo.incrementViewsFn = func(context.Context, uint) (int64, error) {
		views++
		return views, nil
	}
	svc := NewEngagementService(repo)

	n, err := svc.RecordView(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	repo.incrementViewsFn = func(_ context.Context, id uint) (int64, error) {
		return 0, models.NewNotFoundError("Prompt", id)
	}
	_, err = svc.RecordView(context.Background(), 6)
	assertCode(t, err, models.CodeNotFound)
}
