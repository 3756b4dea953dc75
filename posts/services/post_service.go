// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	categoryModels "github.com/qolzam/inkwell/categories/models"
	commentModels "github.com/qolzam/inkwell/comments/models"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform/email"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/types"
	postErrors "github.com/qolzam/inkwell/posts/errors"
	"github.com/qolzam/inkwell/posts/models"
	userModels "github.com/qolzam/inkwell/users/models"
	voteModels "github.com/qolzam/inkwell/votes/models"
)

// FollowingLister returns the ids of the users someone follows.
type FollowingLister interface {
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
}

// PremiumChecker reports whether a user holds a subscription active right now.
type PremiumChecker interface {
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
}

// PostService defines the interface for post operations
type PostService interface {
	CreatePost(ctx context.Context, caller types.UserContext, req *models.CreatePostRequest) (interfaces.Document, error)
	ListPosts(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListMyPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListFollowingPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListUserPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)

	// GetPost loads a post by slug. Premium posts require a caller with an
	// active subscription unless the caller is the author or an admin.
	GetPost(ctx context.Context, slug string, caller *types.UserContext) (interfaces.Document, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, caller types.UserContext, id string, req *models.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, caller types.UserContext, id string) (*models.Post, error)
	// DeletePostByAdmin deletes the post and emails its author the reason.
	DeletePostByAdmin(ctx context.Context, caller types.UserContext, id, reason string) (*models.Post, error)
}

// Dependencies are the collaborators a post service consults.
type Dependencies struct {
	Categories querybuilder.CategoryResolver
	Following  FollowingLister
	Premium    PremiumChecker
	Settings   querybuilder.Settings
	// Mailer is optional; without it removal notices are skipped.
	Mailer   email.Sender
	MailFrom email.Address
}

type postService struct {
	store interfaces.Repository
	deps  Dependencies
	now   func() time.Time
}

// NewPostService creates a post service over the document store.
func NewPostService(store interfaces.Repository, deps Dependencies) PostService {
	return &postService{store: store, deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

func live(conditions ...interfaces.Field) *interfaces.Query {
	return interfaces.NewQuery(append(conditions, interfaces.Ne("isDeleted", true))...)
}

func byID(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id))
}

// references embeds the author and category of each post.
var references = []utils.PopulateSpec{
	{Field: "author", Collection: userModels.CollectionName, Select: userModels.PublicFields},
	{Field: "category", Collection: categoryModels.CollectionName, Select: []string{"name", "description", "postCount"}},
}

func (s *postService) findUser(ctx context.Context, id string) (*userModels.User, error) {
	var user userModels.User
	err := s.store.FindOne(ctx, userModels.CollectionName, live(interfaces.Eq(interfaces.FieldID, id)), &user)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, postErrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// findCategory accepts either a category id or its name.
func (s *postService) findCategory(ctx context.Context, ref string) (*categoryModels.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: category is required", postErrors.ErrValidationFailed)
	}
	query := live()
	query.OrGroups = [][]interfaces.Field{{
		interfaces.Eq(interfaces.FieldID, ref),
		interfaces.Eq("name", ref),
	}}
	var category categoryModels.Category
	err := s.store.FindOne(ctx, categoryModels.CollectionName, query, &category)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, postErrors.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func validContentType(contentType string) error {
	if !slices.Contains(models.ContentTypes, contentType) {
		return fmt.Errorf("%w: contentType must be one of %s", postErrors.ErrValidationFailed, strings.Join(models.ContentTypes, ", "))
	}
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *postService) CreatePost(ctx context.Context, caller types.UserContext, req *models.CreatePostRequest) (interfaces.Document, error) {
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", postErrors.ErrValidationFailed)
	case strings.TrimSpace(req.Content) == "":
		return nil, fmt.Errorf("%w: content is required", postErrors.ErrValidationFailed)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentMarkdown
	}
	if err := validContentType(contentType); err != nil {
		return nil, err
	}

	author, err := s.findUser(ctx, caller.ID())
	if err != nil {
		return nil, err
	}
	if req.IsPremium && !author.IsPremiumUser && !caller.IsAdmin() {
		return nil, postErrors.ErrPremiumAuthorOnly
	}
	category, err := s.findCategory(ctx, req.Category)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Author:      author.ID,
		Title:       title,
		ContentType: contentType,
		Content:     req.Content,
		CoverImage:  strings.TrimSpace(req.CoverImage),
		Category:    category.ID,
		Images:      cleanList(req.Images),
		Tags:        cleanList(req.Tags),
		IsPremium:   req.IsPremium,
	}
	post.Touch(utils.NewID(), s.now())

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if post.Slug, err = s.uniqueSlug(ctx, title, author.Username); err != nil {
			return err
		}
		if err := s.store.Save(ctx, models.CollectionName, post); err != nil {
			return fmt.Errorf("failed to save post: %w", err)
		}
		if _, err := s.store.IncrementFields(ctx, categoryModels.CollectionName, byID(category.ID), map[string]interface{}{"postCount": 1}); err != nil {
			return fmt.Errorf("failed to update category post count: %w", err)
		}
		if _, err := s.store.IncrementFields(ctx, userModels.CollectionName, byID(author.ID), map[string]interface{}{"totalPosts": 1}); err != nil {
			return fmt.Errorf("failed to update author post count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.InfoWithContext(ctx, "post %s created by %s", post.Slug, author.Username)
	return s.populated(ctx, post)
}

// populated converts a post into a document with its references embedded.
func (s *postService) populated(ctx context.Context, post *models.Post) (interfaces.Document, error) {
	doc, err := utils.ToDocument(post)
	if err != nil {
		return nil, err
	}
	if err := utils.Populate(ctx, s.store, []interfaces.Document{doc}, references...); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *postService) list(ctx context.Context, params url.Values, base ...interfaces.Field) ([]interfaces.Document, querybuilder.PageMeta, error) {
	qb := querybuilder.New(s.store, models.CollectionName, params,
		querybuilder.WithBase(append(base, interfaces.Ne("isDeleted", true))...),
		querybuilder.WithCategoryResolver(s.deps.Categories),
		querybuilder.WithAllowedFilters(models.FilterableFields...),
		querybuilder.WithFilterKinds(map[string]querybuilder.FieldKind{
			"isPremium": querybuilder.KindBool,
		}),
		querybuilder.WithSettings(s.deps.Settings),
	).Search(models.SearchableFields...)

	if _, err := qb.Filter(ctx); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	docs, meta, err := qb.Sort().Paginate().Fields().Run(ctx)
	if err != nil {
		return nil, meta, err
	}
	if err := utils.Populate(ctx, s.store, docs, references...); err != nil {
		return nil, meta, err
	}
	return docs, meta, nil
}

func (s *postService) ListPosts(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, params)
}

func (s *postService) ListMyPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, params, interfaces.Eq("author", userID))
}

func (s *postService) ListFollowingPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	ids, err := s.deps.Following.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	if len(ids) == 0 {
		return nil, querybuilder.PageMeta{}, postErrors.ErrNotFollowingAnyone
	}
	authors := make([]interface{}, len(ids))
	for i, id := range ids {
		authors[i] = id
	}
	return s.list(ctx, params, interfaces.In("author", authors...))
}

func (s *postService) ListUserPosts(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	return s.list(ctx, params, interfaces.Eq("author", userID))
}

func (s *postService) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	return s.findPost(ctx, live(interfaces.Eq(interfaces.FieldID, id)))
}

func (s *postService) findPost(ctx context.Context, query *interfaces.Query) (*models.Post, error) {
	var post models.Post
	err := s.store.FindOne(ctx, models.CollectionName, query, &post)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, postErrors.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

func (s *postService) GetPost(ctx context.Context, slug string, caller *types.UserContext) (interfaces.Document, error) {
	post, err := s.findPost(ctx, live(interfaces.Eq("slug", slug)))
	if err != nil {
		return nil, err
	}

	switch {
	case caller == nil:
		if post.IsPremium {
			return nil, postErrors.ErrLoginRequired
		}
	case caller.IsAdmin() || caller.ID() == post.Author:
	default:
		if post.IsPremium {
			if err := s.checkPremium(ctx, caller.ID()); err != nil {
				return nil, err
			}
		}
		if err := s.recordView(ctx, post, caller.ID()); err != nil {
			return nil, err
		}
	}
	return s.populated(ctx, post)
}

func (s *postService) checkPremium(ctx context.Context, userID string) error {
	reader, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !reader.IsPremiumUser {
		return postErrors.ErrPremiumRequired
	}
	active, err := s.deps.Premium.HasActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if !active {
		return postErrors.ErrSubscriptionInactive
	}
	return nil
}

// recordView stores the first view of a reader and bumps totalViews. Later
// views of the same reader are not counted.
func (s *postService) recordView(ctx context.Context, post *models.Post, userID string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		seen, err := s.store.Count(ctx, models.ViewsCollection, interfaces.NewQuery(
			interfaces.Eq("post", post.ID),
			interfaces.Eq("user", userID),
		))
		if err != nil {
			return fmt.Errorf("failed to check view: %w", err)
		}
		if seen > 0 {
			return nil
		}

		now := s.now()
		view := &models.View{User: userID, Post: post.ID, ViewedAt: now}
		view.Touch(utils.NewID(), now)
		if err := s.store.Save(ctx, models.ViewsCollection, view); err != nil {
			if errors.Is(err, interfaces.ErrDuplicateKey) {
				return nil
			}
			return fmt.Errorf("failed to save view: %w", err)
		}
		if _, err := s.store.IncrementFields(ctx, models.CollectionName, byID(post.ID), map[string]interface{}{"totalViews": 1}); err != nil {
			return fmt.Errorf("failed to update view count: %w", err)
		}
		post.TotalViews++
		return nil
	})
}

// editable loads a live post the caller may change.
func (s *postService) editable(ctx context.Context, caller types.UserContext, id string) (*models.Post, error) {
	post, err := s.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && post.Author != caller.ID() {
		return nil, postErrors.ErrPermissionDenied
	}
	return post, nil
}

func (s *postService) UpdatePost(ctx context.Context, caller types.UserContext, id string, req *models.UpdatePostRequest) (*models.Post, error) {
	post, err := s.editable(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	var newTitle string
	if req.Title != nil {
		newTitle = strings.TrimSpace(*req.Title)
		if newTitle == "" {
			return nil, fmt.Errorf("%w: title must not be empty", postErrors.ErrValidationFailed)
		}
		updates["title"] = newTitle
	}
	if req.ContentType != nil {
		if err := validContentType(*req.ContentType); err != nil {
			return nil, err
		}
		updates["contentType"] = *req.ContentType
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, fmt.Errorf("%w: content must not be empty", postErrors.ErrValidationFailed)
		}
		updates["content"] = *req.Content
	}
	if req.CoverImage != nil {
		updates["coverImage"] = strings.TrimSpace(*req.CoverImage)
	}
	if req.Images != nil {
		updates["images"] = cleanList(*req.Images)
	}
	if req.Tags != nil {
		updates["tags"] = cleanList(*req.Tags)
	}

	author, err := s.findUser(ctx, post.Author)
	if err != nil {
		return nil, err
	}
	if req.IsPremium != nil {
		if *req.IsPremium && !post.IsPremium && !author.IsPremiumUser && !caller.IsAdmin() {
			return nil, postErrors.ErrPremiumAuthorOnly
		}
		updates["isPremium"] = *req.IsPremium
	}

	var moveTo string
	if req.Category != nil {
		category, err := s.findCategory(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		if category.ID != post.Category {
			moveTo = category.ID
			updates["category"] = category.ID
		}
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if newTitle != "" && newTitle != post.Title {
			slug, err := s.uniqueSlug(ctx, newTitle, author.Username)
			if err != nil {
				return err
			}
			updates["slug"] = slug
		}
		if len(updates) == 0 {
			return nil
		}
		updates[interfaces.FieldUpdatedAt] = s.now()
		if _, err := s.store.UpdateFields(ctx, models.CollectionName, byID(post.ID), updates); err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}
		if moveTo == "" {
			return nil
		}
		if _, err := s.store.IncrementFields(ctx, categoryModels.CollectionName, byID(post.Category), map[string]interface{}{"postCount": -1}); err != nil {
			return err
		}
		_, err := s.store.IncrementFields(ctx, categoryModels.CollectionName, byID(moveTo), map[string]interface{}{"postCount": 1})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetPostByID(ctx, post.ID)
}

// DeletePost soft deletes the post and removes its comments, views and votes.
func (s *postService) DeletePost(ctx context.Context, caller types.UserContext, id string) (*models.Post, error) {
	post, err := s.editable(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		deleted, err := s.store.UpdateFields(ctx, models.CollectionName, live(interfaces.Eq(interfaces.FieldID, post.ID)), map[string]interface{}{
			"isDeleted":               true,
			interfaces.FieldUpdatedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		if deleted == 0 {
			return postErrors.ErrPostNotFound
		}
		owned := interfaces.NewQuery(interfaces.Eq("post", post.ID))
		for _, collection := range []string{commentModels.CollectionName, models.ViewsCollection, voteModels.CollectionName} {
			if _, err := s.store.Delete(ctx, collection, owned); err != nil {
				return fmt.Errorf("failed to delete post %s: %w", collection, err)
			}
		}
		if _, err := s.store.IncrementFields(ctx, categoryModels.CollectionName, byID(post.Category), map[string]interface{}{"postCount": -1}); err != nil {
			return err
		}
		_, err = s.store.IncrementFields(ctx, userModels.CollectionName, byID(post.Author), map[string]interface{}{"totalPosts": -1})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.InfoWithContext(ctx, "post %s deleted by %s", post.ID, caller.ID())
	post.IsDeleted = true
	return post, nil
}
