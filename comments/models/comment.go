// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// CollectionName is the store collection holding comments.
const CollectionName = "comments"

// SearchableFields are matched by the searchTerm list parameter.
var SearchableFields = []string{"content"}

// Indexes supports listing a post's comments.
var Indexes = []interfaces.Index{
	{Fields: []string{"post"}},
}

// Comment is a reader's reply on a post. Post and User hold ids.
type Comment struct {
	interfaces.BaseEntity `bson:",inline"`
	Post                  string   `json:"post" bson:"post"`
	User                  string   `json:"user" bson:"user"`
	Content               string   `json:"content" bson:"content"`
	Images                []string `json:"images" bson:"images"`
	UpVotes               int64    `json:"upVotes" bson:"upVotes"`
	DownVotes             int64    `json:"downVotes" bson:"downVotes"`
	IsDeleted             bool     `json:"isDeleted" bson:"isDeleted"`
}

// UserFields are embedded for the commenter.
var UserFields = []string{"fullName", "username", "email", "profilePicture"}

// CommentRequest is the body of POST /posts/:id/comments.
type CommentRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// UpdateCommentRequest is the body of PUT /comments/:id. Nil fields are left unchanged.
type UpdateCommentRequest struct {
	Content *string   `json:"content"`
	Images  *[]string `json:"images"`
}
