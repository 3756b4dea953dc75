// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/qolzam/inkwell/internal/types"
	userErrors "github.com/qolzam/inkwell/users/errors"
	"github.com/qolzam/inkwell/users/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollow_Lifecycle(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	users := NewUserService(store, settings)
	svc := NewFollowService(store, users, settings)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", types.UserRole)
	bob := seedUser(t, store, "bob", types.UserRole)

	assert.ErrorIs(t, svc.Follow(ctx, alice.ID, alice.ID), userErrors.ErrSelfFollow)
	assert.ErrorIs(t, svc.Unfollow(ctx, alice.ID, alice.ID), userErrors.ErrSelfUnfollow)
	assert.ErrorIs(t, svc.Follow(ctx, alice.ID, "missing"), userErrors.ErrUserNotFound)
	assert.ErrorIs(t, svc.Unfollow(ctx, alice.ID, bob.ID), userErrors.ErrNotFollowing)

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, svc.Follow(ctx, alice.ID, bob.ID), userErrors.ErrAlreadyFollowing)

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = svc.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	var a, b models.User
	load(t, store, models.CollectionName, alice.ID, &a)
	load(t, store, models.CollectionName, bob.ID, &b)
	assert.Equal(t, int64(1), a.TotalFollowing)
	assert.Equal(t, int64(1), b.TotalFollowers)

	ids, err := svc.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids)

	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))
	load(t, store, models.CollectionName, alice.ID, &a)
	load(t, store, models.CollectionName, bob.ID, &b)
	assert.Equal(t, int64(0), a.TotalFollowing)
	assert.Equal(t, int64(0), b.TotalFollowers)
}

func TestFollow_ListsArePopulated(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	users := NewUserService(store, settings)
	svc := NewFollowService(store, users, settings)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", types.UserRole)
	bob := seedUser(t, store, "bob", types.UserRole)
	carol := seedUser(t, store, "carol", types.UserRole)
	require.NoError(t, svc.Follow(ctx, bob.ID, alice.ID))
	require.NoError(t, svc.Follow(ctx, carol.ID, alice.ID))
	require.NoError(t, svc.Follow(ctx, alice.ID, carol.ID))

	docs, meta, err := svc.Followers(ctx, alice.ID, url.Values{"limit": {"1"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(2), meta.Total)
	assert.Equal(t, int64(2), meta.TotalPages)

	follower, ok := docs[0]["follower"].(map[string]interface{})
	require.True(t, ok, "follower should be embedded")
	assert.Contains(t, []interface{}{"bob", "carol"}, follower["username"])
	assert.NotContains(t, follower, "password")

	docs, _, err = svc.Following(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "carol", docs[0]["following"].(map[string]interface{})["username"])

	_, _, err = svc.Followers(ctx, "missing", nil)
	assert.ErrorIs(t, err, userErrors.ErrUserNotFound)
}
