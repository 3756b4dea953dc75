// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// Store collections owned by posts.
const (
	CollectionName  = "posts"
	ViewsCollection = "views"
)

// Content types a post body may be written in.
const (
	ContentHTML     = "html"
	ContentMarkdown = "markdown"
	ContentText     = "text"
)

// ContentTypes lists the accepted content types.
var ContentTypes = []string{ContentHTML, ContentMarkdown, ContentText}

// SearchableFields are matched by the searchTerm list parameter.
var SearchableFields = []string{"title", "slug", "content"}

// FilterableFields may be used as equality filters on post lists.
var FilterableFields = []string{"category", "author", "isPremium", "contentType", "tags"}

// SummaryFields are embedded when another record references a post.
var SummaryFields = []string{"title", "category", "slug"}

// Indexes declares the unique slug and the author lookup.
var Indexes = []interfaces.Index{
	{Fields: []string{"slug"}, Unique: true},
	{Fields: []string{"author"}},
}

// ViewIndexes records at most one view per reader.
var ViewIndexes = []interfaces.Index{
	{Fields: []string{"post", "user"}, Unique: true},
}

// Post is a blog article. Author and Category hold ids.
type Post struct {
	interfaces.BaseEntity `bson:",inline"`
	Author                string   `json:"author" bson:"author"`
	Title                 string   `json:"title" bson:"title"`
	Slug                  string   `json:"slug" bson:"slug"`
	ContentType           string   `json:"contentType" bson:"contentType"`
	Content               string   `json:"content" bson:"content"`
	CoverImage            string   `json:"coverImage" bson:"coverImage"`
	Category              string   `json:"category" bson:"category"`
	Images                []string `json:"images" bson:"images"`
	Tags                  []string `json:"tags" bson:"tags"`
	IsPremium             bool     `json:"isPremium" bson:"isPremium"`
	UpVotes               int64    `json:"upVotes" bson:"upVotes"`
	DownVotes             int64    `json:"downVotes" bson:"downVotes"`
	TotalComments         int64    `json:"totalComments" bson:"totalComments"`
	TotalViews            int64    `json:"totalViews" bson:"totalViews"`
	IsDeleted             bool     `json:"isDeleted" bson:"isDeleted"`
}

// View records the first time a reader opened a premium post.
type View struct {
	interfaces.BaseEntity `bson:",inline"`
	User                  string    `json:"user" bson:"user"`
	Post                  string    `json:"post" bson:"post"`
	ViewedAt              time.Time `json:"viewedAt" bson:"viewedAt"`
}

// CreatePostRequest is the body of POST /posts. Category accepts an id or a name.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	ContentType string   `json:"contentType"`
	Content     string   `json:"content"`
	CoverImage  string   `json:"coverImage"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsPremium   bool     `json:"isPremium"`
}

// UpdatePostRequest is the body of PUT /posts/:id. Nil fields are left unchanged.
type UpdatePostRequest struct {
	Title       *string   `json:"title"`
	ContentType *string   `json:"contentType"`
	Content     *string   `json:"content"`
	CoverImage  *string   `json:"coverImage"`
	Category    *string   `json:"category"`
	Images      *[]string `json:"images"`
	Tags        *[]string `json:"tags"`
	IsPremium   *bool     `json:"isPremium"`
}

// AdminDeleteRequest is the optional body of DELETE /posts/:id/by-admin.
type AdminDeleteRequest struct {
	Reason string `json:"reason"`
}
