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
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/types"
	postModels "github.com/qolzam/inkwell/posts/models"
	subModels "github.com/qolzam/inkwell/subscriptions/models"
	userErrors "github.com/qolzam/inkwell/users/errors"
	"github.com/qolzam/inkwell/users/models"
	voteModels "github.com/qolzam/inkwell/votes/models"
)

// UserService defines the interface for user account operations
type UserService interface {
	ListUsers(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error)
	UpdateSocialLinks(ctx context.Context, userID string, req *models.UpdateSocialLinksRequest) (*models.User, error)
	BlockUser(ctx context.Context, id string) (*models.User, error)
	UnblockUser(ctx context.Context, id string) (*models.User, error)
	MakeAdmin(ctx context.Context, id string) (*models.User, error)
	DeleteUserAccount(ctx context.Context, id string) error

	// CheckAccess rejects callers whose account was deleted or blocked, or
	// whose token predates their last password change.
	CheckAccess(ctx context.Context, caller types.UserContext) error
}

type userService struct {
	store    interfaces.Repository
	settings querybuilder.Settings
}

// NewUserService creates a user service over the document store.
func NewUserService(store interfaces.Repository, settings querybuilder.Settings) UserService {
	return &userService{store: store, settings: settings}
}

func activeUser(conditions ...interfaces.Field) *interfaces.Query {
	return interfaces.NewQuery(append(conditions, interfaces.Ne("isDeleted", true))...)
}

func byID(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id))
}

func (s *userService) ListUsers(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	qb := querybuilder.New(s.store, models.CollectionName, params,
		querybuilder.WithBase(interfaces.Ne("isDeleted", true)),
		querybuilder.WithAllowedFilters("role", "status", "username", "email", "isPremiumUser", "isVerified", "gender"),
		querybuilder.WithFilterKinds(map[string]querybuilder.FieldKind{
			"isPremiumUser": querybuilder.KindBool,
			"isVerified":    querybuilder.KindBool,
		}),
		querybuilder.WithHiddenFields("password"),
		querybuilder.WithSettings(s.settings),
	).Search(models.SearchableFields...)

	if _, err := qb.Filter(ctx); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	return qb.Sort().Paginate().Fields().Run(ctx)
}

func (s *userService) findUser(ctx context.Context, query *interfaces.Query) (*models.User, error) {
	var user models.User
	if err := s.store.FindOne(ctx, models.CollectionName, query, &user); err != nil {
		if errors.Is(err, interfaces.ErrNoDocuments) {
			return nil, userErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, activeUser(interfaces.Eq(interfaces.FieldID, id)))
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.findUser(ctx, activeUser(interfaces.Eq("username", username)))
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	set := func(field string, value *string) {
		if value != nil {
			updates[field] = strings.TrimSpace(*value)
		}
	}
	set("fullName", req.FullName)
	set("bio", req.Bio)
	set("designation", req.Designation)
	set("phone", req.Phone)
	set("location", req.Location)
	set("profilePicture", req.ProfilePicture)

	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return nil, fmt.Errorf("%w: Full Name must not be empty", userErrors.ErrValidationFailed)
	}
	if req.Gender != nil {
		if !slices.Contains(models.Genders, *req.Gender) {
			return nil, fmt.Errorf("%w: %s is not a valid gender", userErrors.ErrValidationFailed, *req.Gender)
		}
		updates["gender"] = *req.Gender
	}
	if req.DateOfBirth != nil {
		if _, err := time.Parse(time.DateOnly, *req.DateOfBirth); err != nil {
			return nil, fmt.Errorf("%w: Invalid Date, Expected format: YYYY-MM-DD", userErrors.ErrValidationFailed)
		}
		updates["dateOfBirth"] = *req.DateOfBirth
	}
	return s.update(ctx, userID, updates)
}

func (s *userService) UpdateSocialLinks(ctx context.Context, userID string, req *models.UpdateSocialLinksRequest) (*models.User, error) {
	if len(req.SocialLinks) == 0 {
		return nil, fmt.Errorf("%w: At least one social link is required", userErrors.ErrValidationFailed)
	}
	if len(req.SocialLinks) > len(models.SocialPlatforms) {
		return nil, fmt.Errorf("%w: No more than %d social links are allowed", userErrors.ErrValidationFailed, len(models.SocialPlatforms))
	}
	seen := map[string]bool{}
	for _, link := range req.SocialLinks {
		if !slices.Contains(models.SocialPlatforms, link.Platform) {
			return nil, fmt.Errorf("%w: %s is not a valid social platform", userErrors.ErrValidationFailed, link.Platform)
		}
		if seen[link.Platform] {
			return nil, fmt.Errorf("%w: Social platforms must be unique", userErrors.ErrValidationFailed)
		}
		seen[link.Platform] = true
		if u, err := url.ParseRequestURI(link.URL); err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: Invalid URL", userErrors.ErrValidationFailed)
		}
	}
	return s.update(ctx, userID, map[string]interface{}{"socialLinks": req.SocialLinks})
}

func (s *userService) update(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	if len(updates) > 0 {
		n, err := s.store.UpdateFields(ctx, models.CollectionName, activeUser(interfaces.Eq(interfaces.FieldID, id)), updates)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if n == 0 {
			return nil, userErrors.ErrUserNotFound
		}
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *userService) BlockUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked() {
		return nil, userErrors.ErrAlreadyBlocked
	}
	return s.update(ctx, id, map[string]interface{}{"status": models.StatusBlocked})
}

func (s *userService) UnblockUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsBlocked() {
		return nil, userErrors.ErrAlreadyActive
	}
	return s.update(ctx, id, map[string]interface{}{"status": models.StatusActive})
}

func (s *userService) MakeAdmin(ctx context.Context, id string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case user.IsBlocked():
		return nil, userErrors.ErrUserBlocked
	case user.Role == types.AdminRole:
		return nil, userErrors.ErrAlreadyAdmin
	}
	return s.update(ctx, id, map[string]interface{}{"role": types.AdminRole})
}

// DeleteUserAccount marks the user deleted and removes everything the
// account contributed, keeping the counters of other records consistent.
func (s *userService) DeleteUserAccount(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == types.AdminRole {
		return userErrors.ErrAdminDeletion
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		steps := []func(context.Context, string) error{
			s.removePosts,
			s.removeComments,
			s.removeViews,
			s.removeVotes,
			s.removeFollows,
			s.removeBilling,
		}
		for _, step := range steps {
			if err := step(ctx, id); err != nil {
				return err
			}
		}
		_, err := s.store.UpdateFields(ctx, models.CollectionName, byID(id), map[string]interface{}{"isDeleted": true})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	log.Info("user account %s deleted", id)
	return nil
}

func (s *userService) removePosts(ctx context.Context, userID string) error {
	var posts []postModels.Post
	query := interfaces.NewQuery(interfaces.Eq("author", userID), interfaces.Ne("isDeleted", true))
	if err := utils.FindAll(ctx, s.store, postModels.CollectionName, query, nil, &posts); err != nil {
		return err
	}
	for _, post := range posts {
		if _, err := s.store.IncrementFields(ctx, categoryModels.CollectionName, byID(post.Category), map[string]interface{}{"postCount": -1}); err != nil {
			return err
		}
	}
	_, err := s.store.UpdateFields(ctx, postModels.CollectionName, query, map[string]interface{}{"isDeleted": true})
	return err
}

func (s *userService) removeComments(ctx context.Context, userID string) error {
	var comments []commentModels.Comment
	query := interfaces.NewQuery(interfaces.Eq("user", userID))
	if err := utils.FindAll(ctx, s.store, commentModels.CollectionName, query.And(interfaces.Ne("isDeleted", true)), nil, &comments); err != nil {
		return err
	}
	for _, comment := range comments {
		if _, err := s.store.IncrementFields(ctx, postModels.CollectionName, byID(comment.Post), map[string]interface{}{"totalComments": -1}); err != nil {
			return err
		}
	}
	_, err := s.store.Delete(ctx, commentModels.CollectionName, query)
	return err
}

func (s *userService) removeViews(ctx context.Context, userID string) error {
	var views []postModels.View
	query := interfaces.NewQuery(interfaces.Eq("user", userID))
	if err := utils.FindAll(ctx, s.store, postModels.ViewsCollection, query, nil, &views); err != nil {
		return err
	}
	for _, view := range views {
		if _, err := s.store.IncrementFields(ctx, postModels.CollectionName, byID(view.Post), map[string]interface{}{"totalViews": -1}); err != nil {
			return err
		}
	}
	_, err := s.store.Delete(ctx, postModels.ViewsCollection, query)
	return err
}

func (s *userService) removeVotes(ctx context.Context, userID string) error {
	var votes []voteModels.Vote
	query := interfaces.NewQuery(interfaces.Eq("user", userID))
	if err := utils.FindAll(ctx, s.store, voteModels.CollectionName, query, nil, &votes); err != nil {
		return err
	}
	for _, vote := range votes {
		if _, err := s.store.IncrementFields(ctx, postModels.CollectionName, byID(vote.Post), map[string]interface{}{voteModels.VoteCounter(vote.Type): -1}); err != nil {
			return err
		}
	}
	_, err := s.store.Delete(ctx, voteModels.CollectionName, query)
	return err
}

func (s *userService) removeFollows(ctx context.Context, userID string) error {
	var following, followers []models.Follower
	outgoing := interfaces.NewQuery(interfaces.Eq("follower", userID))
	incoming := interfaces.NewQuery(interfaces.Eq("following", userID))
	if err := utils.FindAll(ctx, s.store, models.FollowersCollection, outgoing, nil, &following); err != nil {
		return err
	}
	if err := utils.FindAll(ctx, s.store, models.FollowersCollection, incoming, nil, &followers); err != nil {
		return err
	}
	for _, f := range following {
		if _, err := s.store.IncrementFields(ctx, models.CollectionName, byID(f.Following), map[string]interface{}{"totalFollowers": -1}); err != nil {
			return err
		}
	}
	for _, f := range followers {
		if _, err := s.store.IncrementFields(ctx, models.CollectionName, byID(f.Follower), map[string]interface{}{"totalFollowing": -1}); err != nil {
			return err
		}
	}
	if _, err := s.store.Delete(ctx, models.FollowersCollection, outgoing); err != nil {
		return err
	}
	_, err := s.store.Delete(ctx, models.FollowersCollection, incoming)
	return err
}

func (s *userService) removeBilling(ctx context.Context, userID string) error {
	query := interfaces.NewQuery(interfaces.Eq("user", userID))
	if _, err := s.store.Delete(ctx, subModels.PaymentsCollection, query); err != nil {
		return err
	}
	_, err := s.store.Delete(ctx, subModels.CollectionName, query)
	return err
}

func (s *userService) CheckAccess(ctx context.Context, caller types.UserContext) error {
	user, err := s.findUser(ctx, byID(caller.ID()))
	if err != nil {
		return err
	}
	switch {
	case user.IsDeleted:
		return userErrors.ErrUserDeleted
	case user.IsBlocked():
		return userErrors.ErrUserBlocked
	case user.PasswordChangeAt != nil && user.PasswordChangeAt.Unix() > caller.IssuedAt:
		return userErrors.ErrPasswordChanged
	}
	return nil
}
