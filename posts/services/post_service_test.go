// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	categoryModels "github.com/qolzam/inkwell/categories/models"
	catServices "github.com/qolzam/inkwell/categories/services"
	commentModels "github.com/qolzam/inkwell/comments/models"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/types"
	postErrors "github.com/qolzam/inkwell/posts/errors"
	"github.com/qolzam/inkwell/posts/models"
	userModels "github.com/qolzam/inkwell/users/models"
	voteModels "github.com/qolzam/inkwell/votes/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settings = querybuilder.Settings{DefaultLimit: 10, MaxLimit: 100}

type followingStub map[string][]string

func (f followingStub) FollowingIDs(_ context.Context, followerID string) ([]string, error) {
	return f[followerID], nil
}

type premiumStub map[string]bool

func (p premiumStub) HasActiveSubscription(_ context.Context, userID string) (bool, error) {
	return p[userID], nil
}

type fixture struct {
	store     interfaces.Repository
	svc       PostService
	following followingStub
	premium   premiumStub
	tech      *categoryModels.Category
	life      *categoryModels.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, userModels.CollectionName, userModels.Indexes...))
	require.NoError(t, store.EnsureCollection(ctx, models.CollectionName, models.Indexes...))
	require.NoError(t, store.EnsureCollection(ctx, models.ViewsCollection, models.ViewIndexes...))

	f := &fixture{store: store, following: followingStub{}, premium: premiumStub{}}
	f.svc = NewPostService(store, Dependencies{
		Categories: catServices.NewCategoryService(store, nil, settings),
		Following:  f.following,
		Premium:    f.premium,
		Settings:   settings,
	})
	f.tech = f.category(t, "Tech")
	f.life = f.category(t, "Life")
	return f
}

func (f *fixture) category(t *testing.T, name string) *categoryModels.Category {
	t.Helper()
	c := &categoryModels.Category{Name: name, Description: name + " posts"}
	c.Touch(utils.NewID(), time.Now().UTC())
	require.NoError(t, f.store.Save(context.Background(), categoryModels.CollectionName, c))
	return c
}

func (f *fixture) user(t *testing.T, username, role string, premium bool) types.UserContext {
	t.Helper()
	u := &userModels.User{
		FullName:      username + " Smith",
		Username:      username,
		Email:         username + "@example.com",
		Password:      "hash",
		Role:          role,
		Status:        userModels.StatusActive,
		IsPremiumUser: premium,
	}
	u.Touch(utils.NewID(), time.Now().UTC())
	require.NoError(t, f.store.Save(context.Background(), userModels.CollectionName, u))
	return types.UserContext{UserID: uuid.FromStringOrNil(u.ID), Username: username, Email: u.Email, Role: role}
}

func (f *fixture) post(t *testing.T, author types.UserContext, title string, premium bool) interfaces.Document {
	t.Helper()
	doc, err := f.svc.CreatePost(context.Background(), author, &models.CreatePostRequest{
		Title:       title,
		ContentType: models.ContentMarkdown,
		Content:     "# " + title,
		Category:    f.tech.ID,
		Tags:        []string{"go", " go ", "web"},
		IsPremium:   premium,
	})
	require.NoError(t, err)
	return doc
}

type slowReads struct {
	interfaces.Repository
}

func (s slowReads) FindOne(ctx context.Context, collectionName string, query *interfaces.Query, out interface{}) error {
	time.Sleep(20 * time.Millisecond)
	return s.Repository.FindOne(ctx, collectionName, query, out)
}

func (f *fixture) load(t *testing.T, collection, id string, out interface{}) {
	t.Helper()
	require.NoError(t, f.store.FindOne(context.Background(), collection, byID(id), out))
}

func (f *fixture) count(t *testing.T, collection string, conditions ...interfaces.Field) int64 {
	t.Helper()
	n, err := f.store.Count(context.Background(), collection, interfaces.NewQuery(conditions...))
	require.NoError(t, err)
	return n
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World! Go?-alice", "hello-world-go-alice"},
		{"  Don't (panic)  -bob", "dont-panic-bob"},
		{"C# & Go: 2024-carol", "c-go-2024-carol"},
		{"Ünïcode Title-dave", "ünïcode-title-dave"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}

func TestCreatePost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "alice", types.UserRole, false)

	doc := f.post(t, alice, "Hello World", false)
	assert.Equal(t, "hello-world-alice", doc["slug"])
	assert.Equal(t, []interface{}{"go", "web"}, doc["tags"])

	author, ok := doc["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", author["username"])
	assert.NotContains(t, author, "password")
	category, ok := doc["category"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tech", category["name"])

	again := f.post(t, alice, "Hello World", false)
	assert.Equal(t, "hello-world-alice-1", again["slug"])

	var tech categoryModels.Category
	f.load(t, categoryModels.CollectionName, f.tech.ID, &tech)
	assert.Equal(t, int64(2), tech.PostCount)
	var user userModels.User
	f.load(t, userModels.CollectionName, alice.ID(), &user)
	assert.Equal(t, int64(2), user.TotalPosts)
}

func TestCreatePost_Rules(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	root := f.user(t, "root", types.AdminRole, false)

	valid := func() *models.CreatePostRequest {
		return &models.CreatePostRequest{Title: "A title", Content: "body", Category: "Life"}
	}

	doc, err := f.svc.CreatePost(ctx, alice, valid())
	require.NoError(t, err)
	assert.Equal(t, models.ContentMarkdown, doc["contentType"])
	assert.Equal(t, "Life", doc["category"].(map[string]interface{})["name"])

	premium := valid()
	premium.IsPremium = true
	_, err = f.svc.CreatePost(ctx, alice, premium)
	assert.ErrorIs(t, err, postErrors.ErrPremiumAuthorOnly)
	_, err = f.svc.CreatePost(ctx, root, premium)
	assert.NoError(t, err)

	missing := valid()
	missing.Category = "Cooking"
	_, err = f.svc.CreatePost(ctx, alice, missing)
	assert.ErrorIs(t, err, postErrors.ErrCategoryNotFound)

	badType := valid()
	badType.ContentType = "pdf"
	_, err = f.svc.CreatePost(ctx, alice, badType)
	assert.ErrorIs(t, err, postErrors.ErrValidationFailed)

	_, err = f.svc.CreatePost(ctx, alice, &models.CreatePostRequest{Content: "body", Category: "Life"})
	assert.ErrorIs(t, err, postErrors.ErrValidationFailed)

	ghost := types.UserContext{UserID: uuid.Must(uuid.NewV4()), Role: types.UserRole}
	_, err = f.svc.CreatePost(ctx, ghost, valid())
	assert.ErrorIs(t, err, postErrors.ErrUserNotFound)
}

func TestListPosts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, true)
	bob := f.user(t, "bob", types.UserRole, false)

	f.post(t, alice, "Go generics", true)
	f.post(t, alice, "Rust lifetimes", false)
	gone := f.post(t, bob, "Deleted draft", false)
	f.post(t, bob, "Go channels", false)
	_, err := f.svc.DeletePost(ctx, bob, utils.DocumentID(gone))
	require.NoError(t, err)

	docs, meta, err := f.svc.ListPosts(ctx, url.Values{"searchTerm": {"go"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	for _, doc := range docs {
		assert.IsType(t, map[string]interface{}{}, doc["author"])
	}

	_, meta, err = f.svc.ListPosts(ctx, url.Values{"isPremium": {"true"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)

	_, meta, err = f.svc.ListPosts(ctx, url.Values{"category": {"Tech"}, "tags": {"web"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Total)

	_, _, err = f.svc.ListPosts(ctx, url.Values{"isPremium": {"sometimes"}})
	assert.ErrorIs(t, err, interfaces.ErrInvalidFilter)

	_, meta, err = f.svc.ListMyPosts(ctx, bob.ID(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)

	_, meta, err = f.svc.ListUserPosts(ctx, alice.ID(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	_, _, err = f.svc.ListUserPosts(ctx, uuid.Must(uuid.NewV4()).String(), url.Values{})
	assert.ErrorIs(t, err, postErrors.ErrUserNotFound)
}

func TestListFollowingPosts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	bob := f.user(t, "bob", types.UserRole, false)
	carol := f.user(t, "carol", types.UserRole, false)
	f.post(t, bob, "From bob", false)
	f.post(t, carol, "From carol", false)

	_, _, err := f.svc.ListFollowingPosts(ctx, alice.ID(), url.Values{})
	assert.ErrorIs(t, err, postErrors.ErrNotFollowingAnyone)

	f.following[alice.ID()] = []string{bob.ID()}
	docs, meta, err := f.svc.ListFollowingPosts(ctx, alice.ID(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, int64(1), meta.Total)
	assert.Equal(t, "From bob", docs[0]["title"])
}

func TestGetPost_PremiumAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", types.UserRole, true)
	free := f.user(t, "free", types.UserRole, false)
	lapsed := f.user(t, "lapsed", types.UserRole, true)
	member := f.user(t, "member", types.UserRole, true)
	root := f.user(t, "root", types.AdminRole, false)
	f.premium[member.ID()] = true

	slug := f.post(t, author, "Deep dive", true)["slug"].(string)

	_, err := f.svc.GetPost(ctx, slug, nil)
	assert.ErrorIs(t, err, postErrors.ErrLoginRequired)
	_, err = f.svc.GetPost(ctx, slug, &free)
	assert.ErrorIs(t, err, postErrors.ErrPremiumRequired)
	_, err = f.svc.GetPost(ctx, slug, &lapsed)
	assert.ErrorIs(t, err, postErrors.ErrSubscriptionInactive)

	for _, caller := range []*types.UserContext{&author, &root} {
		_, err = f.svc.GetPost(ctx, slug, caller)
		require.NoError(t, err)
	}
	assert.Zero(t, f.count(t, models.ViewsCollection))

	doc, err := f.svc.GetPost(ctx, slug, &member)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["totalViews"])
	_, err = f.svc.GetPost(ctx, slug, &member)
	require.NoError(t, err)

	var post models.Post
	f.load(t, models.CollectionName, utils.DocumentID(doc), &post)
	assert.Equal(t, int64(1), post.TotalViews)
	assert.Equal(t, int64(1), f.count(t, models.ViewsCollection, interfaces.Eq("user", member.ID())))

	_, err = f.svc.GetPost(ctx, "no-such-post", &member)
	assert.ErrorIs(t, err, postErrors.ErrPostNotFound)
}

func TestGetPost_FreePost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	bob := f.user(t, "bob", types.UserRole, false)
	slug := f.post(t, alice, "Open post", false)["slug"].(string)

	doc, err := f.svc.GetPost(ctx, slug, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, doc["totalViews"])

	doc, err = f.svc.GetPost(ctx, slug, &bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["totalViews"])
}

func TestUpdatePost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	bob := f.user(t, "bob", types.UserRole, false)
	root := f.user(t, "root", types.AdminRole, false)
	id := utils.DocumentID(f.post(t, alice, "First draft", false))

	title := "Final version"
	_, err := f.svc.UpdatePost(ctx, bob, id, &models.UpdatePostRequest{Title: &title})
	assert.ErrorIs(t, err, postErrors.ErrPermissionDenied)

	category := "Life"
	post, err := f.svc.UpdatePost(ctx, alice, id, &models.UpdatePostRequest{Title: &title, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Final version", post.Title)
	assert.Equal(t, "final-version-alice", post.Slug)
	assert.Equal(t, f.life.ID, post.Category)

	var tech, life categoryModels.Category
	f.load(t, categoryModels.CollectionName, f.tech.ID, &tech)
	f.load(t, categoryModels.CollectionName, f.life.ID, &life)
	assert.Equal(t, int64(0), tech.PostCount)
	assert.Equal(t, int64(1), life.PostCount)

	premium := true
	_, err = f.svc.UpdatePost(ctx, alice, id, &models.UpdatePostRequest{IsPremium: &premium})
	assert.ErrorIs(t, err, postErrors.ErrPremiumAuthorOnly)
	post, err = f.svc.UpdatePost(ctx, root, id, &models.UpdatePostRequest{IsPremium: &premium})
	require.NoError(t, err)
	assert.True(t, post.IsPremium)

	empty := "  "
	_, err = f.svc.UpdatePost(ctx, alice, id, &models.UpdatePostRequest{Content: &empty})
	assert.ErrorIs(t, err, postErrors.ErrValidationFailed)
}

func TestDeletePost_Cascade(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	bob := f.user(t, "bob", types.UserRole, false)
	keep := utils.DocumentID(f.post(t, alice, "Keep me", false))
	id := utils.DocumentID(f.post(t, alice, "Drop me", false))

	for _, postID := range []string{keep, id} {
		comment := &commentModels.Comment{Post: postID, User: bob.ID(), Content: "nice"}
		comment.Touch(utils.NewID(), time.Now().UTC())
		require.NoError(t, f.store.Save(ctx, commentModels.CollectionName, comment))
		vote := &voteModels.Vote{Post: postID, User: bob.ID(), Type: voteModels.Upvote}
		vote.Touch(utils.NewID(), time.Now().UTC())
		require.NoError(t, f.store.Save(ctx, voteModels.CollectionName, vote))
	}

	_, err := f.svc.DeletePost(ctx, bob, id)
	assert.ErrorIs(t, err, postErrors.ErrPermissionDenied)

	post, err := f.svc.DeletePost(ctx, alice, id)
	require.NoError(t, err)
	assert.True(t, post.IsDeleted)

	_, err = f.svc.GetPostByID(ctx, id)
	assert.ErrorIs(t, err, postErrors.ErrPostNotFound)
	_, err = f.svc.DeletePost(ctx, alice, id)
	assert.ErrorIs(t, err, postErrors.ErrPostNotFound)

	assert.Equal(t, int64(1), f.count(t, commentModels.CollectionName))
	assert.Equal(t, int64(1), f.count(t, voteModels.CollectionName, interfaces.Eq("post", keep)))
	assert.Zero(t, f.count(t, voteModels.CollectionName, interfaces.Eq("post", id)))

	var tech categoryModels.Category
	f.load(t, categoryModels.CollectionName, f.tech.ID, &tech)
	assert.Equal(t, int64(1), tech.PostCount)
	var user userModels.User
	f.load(t, userModels.CollectionName, alice.ID(), &user)
	assert.Equal(t, int64(1), user.TotalPosts)
}

func TestDeletePost_Concurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", types.UserRole, false)
	f.post(t, alice, "Stays", false)
	id := utils.DocumentID(f.post(t, alice, "Goes once", false))

	slow := slowReads{f.store}
	svc := NewPostService(slow, Dependencies{
		Categories: catServices.NewCategoryService(slow, nil, settings),
		Following:  f.following,
		Premium:    f.premium,
		Settings:   settings,
	})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.DeletePost(ctx, alice, id)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, postErrors.ErrPostNotFound)
	}
	assert.Equal(t, 1, succeeded)

	var tech categoryModels.Category
	f.load(t, categoryModels.CollectionName, f.tech.ID, &tech)
	assert.Equal(t, int64(1), tech.PostCount)
	var user userModels.User
	f.load(t, userModels.CollectionName, alice.ID(), &user)
	assert.Equal(t, int64(1), user.TotalPosts)
}
