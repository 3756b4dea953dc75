// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/mocks"
	"github.com/qolzam/inkwell/internal/database/utils"
	postModels "github.com/qolzam/inkwell/posts/models"
	voteErrors "github.com/qolzam/inkwell/votes/errors"
	"github.com/qolzam/inkwell/votes/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (interfaces.Repository, VoteService, *postModels.Post) {
	t.Helper()
	store := memory.NewMemoryRepository()
	require.NoError(t, store.EnsureCollection(context.Background(), models.CollectionName, models.Indexes...))
	post := &postModels.Post{Author: "author-1", Title: "Votes", Slug: "votes"}
	post.Touch(utils.NewID(), time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), postModels.CollectionName, post))
	return store, NewVoteService(store), post
}

func TestVote_Toggle(t *testing.T) {
	t.Parallel()
	store, svc, post := setup(t)
	ctx := context.Background()

	steps := []struct {
		voteType string
		up, down int64
		votes    int64
	}{
		{models.Upvote, 1, 0, 1},
		{models.Downvote, 0, 1, 1},
		{models.Downvote, 0, 0, 0},
		{models.Upvote, 1, 0, 1},
	}
	for _, step := range steps {
		updated, err := svc.Vote(ctx, "reader-1", post.ID, step.voteType)
		require.NoError(t, err)
		assert.Equal(t, step.up, updated.UpVotes, step.voteType)
		assert.Equal(t, step.down, updated.DownVotes, step.voteType)
		n, err := store.Count(ctx, models.CollectionName, interfaces.NewQuery(interfaces.Eq("post", post.ID)))
		require.NoError(t, err)
		assert.Equal(t, step.votes, n)
	}

	updated, err := svc.Vote(ctx, "reader-2", post.ID, models.Upvote)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.UpVotes)
}

func TestVote_Rules(t *testing.T) {
	t.Parallel()
	_, svc, post := setup(t)
	ctx := context.Background()

	_, err := svc.Vote(ctx, "reader-1", post.ID, "sideways")
	assert.ErrorIs(t, err, voteErrors.ErrInvalidVoteType)
	_, err = svc.Vote(ctx, post.Author, post.ID, models.Upvote)
	assert.ErrorIs(t, err, voteErrors.ErrSelfVote)
	_, err = svc.Vote(ctx, "reader-1", utils.NewID(), models.Upvote)
	assert.ErrorIs(t, err, voteErrors.ErrPostNotFound)
}

func TestVote_Status(t *testing.T) {
	t.Parallel()
	_, svc, post := setup(t)
	ctx := context.Background()

	_, err := svc.Status(ctx, "reader-1", post.ID)
	assert.ErrorIs(t, err, voteErrors.ErrNotVoted)

	_, err = svc.Vote(ctx, "reader-1", post.ID, models.Downvote)
	require.NoError(t, err)
	status, err := svc.Status(ctx, "reader-1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.VoteStatus{Status: "Voted", VoteType: models.Downvote, PostID: post.ID, UserID: "reader-1"}, status)
}

func TestVote_TransactionFailure(t *testing.T) {
	store := new(mocks.MockRepository)
	store.On("WithTransaction", mock.Anything, mock.Anything).Return(errors.New("session aborted"))

	_, err := NewVoteService(store).Vote(context.Background(), "reader-1", "post-1", models.Upvote)
	assert.EqualError(t, err, "session aborted")
	store.AssertExpectations(t)
}
