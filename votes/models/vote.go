// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// CollectionName is the store collection holding votes.
const CollectionName = "votes"

// Vote types.
const (
	Upvote   = "upvote"
	Downvote = "downvote"
)

// Indexes allows one vote per reader and post.
var Indexes = []interfaces.Index{
	{Fields: []string{"post", "user"}, Unique: true},
}

// Vote is a reader's up or down vote on a post.
type Vote struct {
	interfaces.BaseEntity `bson:",inline"`
	User                  string `json:"user" bson:"user"`
	Post                  string `json:"post" bson:"post"`
	Type                  string `json:"type" bson:"type"`
}

// VoteRequest is the body of PUT /posts/:id/vote.
type VoteRequest struct {
	VoteType string `json:"voteType"`
}

// VoteStatus is returned by GET /posts/:id/vote-status.
type VoteStatus struct {
	Status   string `json:"status"`
	VoteType string `json:"voteType"`
	PostID   string `json:"postId"`
	UserID   string `json:"userId"`
}

// VoteCounter returns the post counter a vote type moves.
func VoteCounter(voteType string) string {
	if voteType == Upvote {
		return "upVotes"
	}
	return "downVotes"
}
