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
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/querybuilder"
	userErrors "github.com/qolzam/inkwell/users/errors"
	"github.com/qolzam/inkwell/users/models"
)

// FollowService defines the interface for follow relationships
type FollowService interface {
	Follow(ctx context.Context, followerID, targetID string) error
	Unfollow(ctx context.Context, followerID, targetID string) error
	IsFollowing(ctx context.Context, followerID, targetID string) (bool, error)
	// FollowingIDs returns the ids of every user followerID follows.
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
	Followers(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	Following(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
}

type followService struct {
	store    interfaces.Repository
	users    UserService
	settings querybuilder.Settings
}

// NewFollowService creates a follow service.
func NewFollowService(store interfaces.Repository, users UserService, settings querybuilder.Settings) FollowService {
	return &followService{store: store, users: users, settings: settings}
}

func relation(followerID, targetID string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq("follower", followerID), interfaces.Eq("following", targetID))
}

// pair loads both ends of a relationship.
func (s *followService) pair(ctx context.Context, followerID, targetID string) error {
	if _, err := s.users.GetUser(ctx, followerID); err != nil {
		return err
	}
	_, err := s.users.GetUser(ctx, targetID)
	return err
}

func (s *followService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return userErrors.ErrSelfFollow
	}
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.pair(ctx, followerID, targetID); err != nil {
			return err
		}
		exists, err := s.IsFollowing(ctx, followerID, targetID)
		if err != nil {
			return err
		}
		if exists {
			return userErrors.ErrAlreadyFollowing
		}

		now := time.Now().UTC()
		follow := &models.Follower{Follower: followerID, Following: targetID, FollowedAt: now}
		follow.Touch(utils.NewID(), now)
		if err := s.store.Save(ctx, models.FollowersCollection, follow); err != nil {
			if errors.Is(err, interfaces.ErrDuplicateKey) {
				return userErrors.ErrAlreadyFollowing
			}
			return fmt.Errorf("failed to save follow: %w", err)
		}
		return s.shiftCounters(ctx, followerID, targetID, 1)
	})
}

func (s *followService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return userErrors.ErrSelfUnfollow
	}
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.pair(ctx, followerID, targetID); err != nil {
			return err
		}
		n, err := s.store.Delete(ctx, models.FollowersCollection, relation(followerID, targetID))
		if err != nil {
			return fmt.Errorf("failed to delete follow: %w", err)
		}
		if n == 0 {
			return userErrors.ErrNotFollowing
		}
		return s.shiftCounters(ctx, followerID, targetID, -1)
	})
}

func (s *followService) shiftCounters(ctx context.Context, followerID, targetID string, delta int) error {
	if _, err := s.store.IncrementFields(ctx, models.CollectionName, byID(targetID), map[string]interface{}{"totalFollowers": delta}); err != nil {
		return fmt.Errorf("failed to update followers count: %w", err)
	}
	if _, err := s.store.IncrementFields(ctx, models.CollectionName, byID(followerID), map[string]interface{}{"totalFollowing": delta}); err != nil {
		return fmt.Errorf("failed to update following count: %w", err)
	}
	return nil
}

func (s *followService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	n, err := s.store.Count(ctx, models.FollowersCollection, relation(followerID, targetID))
	if err != nil {
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}
	return n > 0, nil
}

func (s *followService) FollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	var follows []models.Follower
	err := utils.FindAll(ctx, s.store, models.FollowersCollection, interfaces.NewQuery(interfaces.Eq("follower", followerID)),
		&interfaces.FindOptions{Select: map[string]int{"following": 1}}, &follows)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed users: %w", err)
	}
	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.Following)
	}
	return ids, nil
}

func (s *followService) Followers(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, userID, "following", "follower", params)
}

func (s *followService) Following(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, userID, "follower", "following", params)
}

// list pages the relationships where match equals userID and embeds the
// user on the other end.
func (s *followService) list(ctx context.Context, userID, match, embed string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}

	qb := querybuilder.New(s.store, models.FollowersCollection, params,
		querybuilder.WithBase(interfaces.Eq(match, userID)),
		querybuilder.WithAllowedFilters(embed),
		querybuilder.WithSettings(s.settings),
	)
	if _, err := qb.Filter(ctx); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	docs, meta, err := qb.Sort().Paginate().Fields().Run(ctx)
	if err != nil {
		return nil, meta, err
	}
	err = utils.Populate(ctx, s.store, docs, utils.PopulateSpec{
		Field:      embed,
		Collection: models.CollectionName,
		Select:     models.PublicFields,
	})
	if err != nil {
		return nil, meta, err
	}
	return docs, meta, nil
}
