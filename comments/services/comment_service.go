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
	"strings"
	"time"

	commentErrors "github.com/qolzam/inkwell/comments/errors"
	"github.com/qolzam/inkwell/comments/models"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/types"
	postModels "github.com/qolzam/inkwell/posts/models"
	userModels "github.com/qolzam/inkwell/users/models"
)

// CommentService defines the interface for comment operations
type CommentService interface {
	CreateComment(ctx context.Context, userID, postID string, req *models.CommentRequest) (interfaces.Document, error)
	ListComments(ctx context.Context, postID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	UpdateComment(ctx context.Context, caller types.UserContext, id string, req *models.UpdateCommentRequest) (*models.Comment, error)
	DeleteComment(ctx context.Context, caller types.UserContext, id string) (*models.Comment, error)
}

type commentService struct {
	store    interfaces.Repository
	settings querybuilder.Settings
}

// NewCommentService creates a comment service over the document store.
func NewCommentService(store interfaces.Repository, settings querybuilder.Settings) CommentService {
	return &commentService{store: store, settings: settings}
}

func live(conditions ...interfaces.Field) *interfaces.Query {
	return interfaces.NewQuery(append(conditions, interfaces.Ne("isDeleted", true))...)
}

func byID(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id))
}

var references = []utils.PopulateSpec{
	{Field: "user", Collection: userModels.CollectionName, Select: models.UserFields},
	{Field: "post", Collection: postModels.CollectionName, Select: postModels.SummaryFields},
}

func (s *commentService) exists(ctx context.Context, collection, id string, missing error) error {
	n, err := s.store.Count(ctx, collection, live(interfaces.Eq(interfaces.FieldID, id)))
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", collection, err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func (s *commentService) CreateComment(ctx context.Context, userID, postID string, req *models.CommentRequest) (interfaces.Document, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: Content cannot be empty", commentErrors.ErrValidationFailed)
	}

	comment := &models.Comment{
		Post:    postID,
		User:    userID,
		Content: req.Content,
		Images:  cleanImages(req.Images),
	}
	comment.Touch(utils.NewID(), time.Now().UTC())

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.exists(ctx, userModels.CollectionName, userID, commentErrors.ErrUserNotFound); err != nil {
			return err
		}
		if err := s.exists(ctx, postModels.CollectionName, postID, commentErrors.ErrPostNotFound); err != nil {
			return err
		}
		if err := s.store.Save(ctx, models.CollectionName, comment); err != nil {
			return fmt.Errorf("failed to save comment: %w", err)
		}
		_, err := s.store.IncrementFields(ctx, postModels.CollectionName, byID(postID), map[string]interface{}{"totalComments": 1})
		return err
	})
	if err != nil {
		return nil, err
	}

	doc, err := utils.ToDocument(comment)
	if err != nil {
		return nil, err
	}
	if err := utils.Populate(ctx, s.store, []interfaces.Document{doc}, references...); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *commentService) ListComments(ctx context.Context, postID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	if err := s.exists(ctx, postModels.CollectionName, postID, commentErrors.ErrPostNotFound); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}

	qb := querybuilder.New(s.store, models.CollectionName, params,
		querybuilder.WithBase(interfaces.Eq("post", postID), interfaces.Ne("isDeleted", true)),
		querybuilder.WithAllowedFilters("user"),
		querybuilder.WithSettings(s.settings),
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

// owned loads a live comment the caller may change.
func (s *commentService) owned(ctx context.Context, caller types.UserContext, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.store.FindOne(ctx, models.CollectionName, live(interfaces.Eq(interfaces.FieldID, id)), &comment)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, commentErrors.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	if !caller.IsAdmin() && comment.User != caller.ID() {
		return nil, commentErrors.ErrPermissionDenied
	}
	return &comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, caller types.UserContext, id string, req *models.UpdateCommentRequest) (*models.Comment, error) {
	comment, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, fmt.Errorf("%w: Content cannot be empty", commentErrors.ErrValidationFailed)
		}
		updates["content"] = *req.Content
		comment.Content = *req.Content
	}
	if req.Images != nil {
		comment.Images = cleanImages(*req.Images)
		updates["images"] = comment.Images
	}
	if len(updates) == 0 {
		return comment, nil
	}

	now := time.Now().UTC()
	updates[interfaces.FieldUpdatedAt] = now
	if _, err := s.store.UpdateFields(ctx, models.CollectionName, byID(id), updates); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.UpdatedAt = now
	return comment, nil
}

// DeleteComment soft deletes the comment and decrements the post's count.
func (s *commentService) DeleteComment(ctx context.Context, caller types.UserContext, id string) (*models.Comment, error) {
	comment, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		deleted, err := s.store.UpdateFields(ctx, models.CollectionName, live(interfaces.Eq(interfaces.FieldID, id)), map[string]interface{}{"isDeleted": true})
		if err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		if deleted == 0 {
			return commentErrors.ErrCommentNotFound
		}
		n, err := s.store.IncrementFields(ctx, postModels.CollectionName, live(interfaces.Eq(interfaces.FieldID, comment.Post)), map[string]interface{}{"totalComments": -1})
		if err != nil {
			return fmt.Errorf("failed to update comment count: %w", err)
		}
		if n == 0 {
			return commentErrors.ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	comment.IsDeleted = true
	return comment, nil
}
