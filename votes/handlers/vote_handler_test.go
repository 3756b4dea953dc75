// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/testutil"
	"github.com/qolzam/inkwell/internal/types"
	postModels "github.com/qolzam/inkwell/posts/models"
	"github.com/qolzam/inkwell/votes"
	"github.com/qolzam/inkwell/votes/handlers"
	"github.com/qolzam/inkwell/votes/models"
	"github.com/qolzam/inkwell/votes/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRoutes(t *testing.T) {
	cfg := testutil.NewTestConfig(t, nil)
	store := memory.NewMemoryRepository()

	author := uuid.Must(uuid.NewV4())
	post := &postModels.Post{Author: author.String(), Title: "Vote here", Slug: "vote-here"}
	post.Touch(utils.NewID(), time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), postModels.CollectionName, post))

	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler})
	app.Get("/posts/:slug", func(c *fiber.Ctx) error { return c.SendString(c.Params("slug")) })
	votes.RegisterRoutes(app, &votes.VotesHandlers{
		VoteHandler: handlers.NewVoteHandler(services.NewVoteService(store)),
	}, guards.New(cfg.JWT.PublicKey, nil))
	h := testutil.NewHTTPHelper(t, app)

	reader := testutil.GenerateTestJWT(t, cfg.JWT.PrivateKey, types.UserContext{UserID: uuid.Must(uuid.NewV4()), Role: types.UserRole})
	owner := testutil.GenerateTestJWT(t, cfg.JWT.PrivateKey, types.UserContext{UserID: author, Role: types.UserRole})
	path := "/posts/" + post.ID

	resp := h.NewRequest(http.MethodGet, "/posts/vote-here", nil).Send()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.NewRequest(http.MethodGet, path+"/vote-status", nil).WithJWTAuth(reader).Send()
	env := testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Voted yet!", env.Message)

	resp = h.NewRequest(http.MethodPut, path+"/vote?voteType=upvote", nil).WithJWTAuth(reader).Send()
	var updated postModels.Post
	env = testutil.Decode(t, resp, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Vote on post successfully updated", env.Message)
	assert.Equal(t, int64(1), updated.UpVotes)

	resp = h.NewRequest(http.MethodPut, path+"/vote", map[string]string{"voteType": "downvote"}).WithJWTAuth(reader).Send()
	env = testutil.Decode(t, resp, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, int64(0), updated.UpVotes)
	assert.Equal(t, int64(1), updated.DownVotes)

	resp = h.NewRequest(http.MethodGet, path+"/vote-status", nil).WithJWTAuth(reader).Send()
	var status models.VoteStatus
	env = testutil.Decode(t, resp, &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Vote status retrieved successfully", env.Message)
	assert.Equal(t, models.Downvote, status.VoteType)

	resp = h.NewRequest(http.MethodPut, path+"/vote?voteType=meh", nil).WithJWTAuth(reader).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid vote type", env.Message)

	resp = h.NewRequest(http.MethodPut, path+"/vote?voteType=upvote", nil).WithJWTAuth(owner).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Author cannot vote on their own post", env.Message)

	resp = h.NewRequest(http.MethodPut, path+"/vote?voteType=upvote", nil).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
