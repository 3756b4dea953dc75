// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	postModels "github.com/qolzam/inkwell/posts/models"
	voteErrors "github.com/qolzam/inkwell/votes/errors"
	"github.com/qolzam/inkwell/votes/models"
)

// VoteService defines the interface for voting on posts
type VoteService interface {
	// Vote casts, switches or withdraws the vote of userID on a post.
	// Repeating the current vote type withdraws it.
	Vote(ctx context.Context, userID, postID, voteType string) (*postModels.Post, error)
	Status(ctx context.Context, userID, postID string) (*models.VoteStatus, error)
}

type voteService struct {
	store interfaces.Repository
}

// NewVoteService creates a vote service over the document store.
func NewVoteService(store interfaces.Repository) VoteService {
	return &voteService{store: store}
}

func byID(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id))
}

func ballot(userID, postID string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq("post", postID), interfaces.Eq("user", userID))
}

func (s *voteService) post(ctx context.Context, id string) (*postModels.Post, error) {
	var post postModels.Post
	query := interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id), interfaces.Ne("isDeleted", true))
	err := s.store.FindOne(ctx, postModels.CollectionName, query, &post)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, voteErrors.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

// existing returns the caller's vote on the post, or nil.
func (s *voteService) existing(ctx context.Context, userID, postID string) (*models.Vote, error) {
	var vote models.Vote
	err := s.store.FindOne(ctx, models.CollectionName, ballot(userID, postID), &vote)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}
	return &vote, nil
}

func (s *voteService) Vote(ctx context.Context, userID, postID, voteType string) (*postModels.Post, error) {
	if voteType != models.Upvote && voteType != models.Downvote {
		return nil, voteErrors.ErrInvalidVoteType
	}

	var post *postModels.Post
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if post, err = s.post(ctx, postID); err != nil {
			return err
		}
		if post.Author == userID {
			return voteErrors.ErrSelfVote
		}
		current, err := s.existing(ctx, userID, postID)
		if err != nil {
			return err
		}

		counters := map[string]interface{}{}
		switch {
		case current == nil:
			vote := &models.Vote{User: userID, Post: postID, Type: voteType}
			vote.Touch(utils.NewID(), time.Now().UTC())
			if err := s.store.Save(ctx, models.CollectionName, vote); err != nil {
				return fmt.Errorf("failed to save vote: %w", err)
			}
			counters[models.VoteCounter(voteType)] = 1
		case current.Type == voteType:
			if _, err := s.store.Delete(ctx, models.CollectionName, byID(current.ID)); err != nil {
				return fmt.Errorf("failed to withdraw vote: %w", err)
			}
			counters[models.VoteCounter(voteType)] = -1
		default:
			if _, err := s.store.UpdateFields(ctx, models.CollectionName, byID(current.ID), map[string]interface{}{
				"type":                    voteType,
				interfaces.FieldUpdatedAt: time.Now().UTC(),
			}); err != nil {
				return fmt.Errorf("failed to switch vote: %w", err)
			}
			counters[models.VoteCounter(voteType)] = 1
			counters[models.VoteCounter(current.Type)] = -1
		}
		if _, err := s.store.IncrementFields(ctx, postModels.CollectionName, byID(postID), counters); err != nil {
			return fmt.Errorf("failed to update vote counts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.post(ctx, postID)
}

func (s *voteService) Status(ctx context.Context, userID, postID string) (*models.VoteStatus, error) {
	if _, err := s.post(ctx, postID); err != nil {
		return nil, err
	}
	vote, err := s.existing(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, voteErrors.ErrNotVoted
	}
	return &models.VoteStatus{
		Status:   "Voted",
		VoteType: vote.Type,
		PostID:   postID,
		UserID:   userID,
	}, nil
}
