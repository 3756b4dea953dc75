// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// CollectionName is the store collection holding categories.
const CollectionName = "categories"

// SearchableFields are matched by the searchTerm list parameter.
var SearchableFields = []string{"name", "description"}

// Indexes declares the unique category name.
var Indexes = []interfaces.Index{
	{Fields: []string{"name"}, Unique: true},
}

// Category groups posts. Deleted categories are kept with IsDeleted set.
type Category struct {
	interfaces.BaseEntity `bson:",inline"`
	Name                  string `json:"name" bson:"name"`
	Description           string `json:"description" bson:"description"`
	PostCount             int64  `json:"postCount" bson:"postCount"`
	IsDeleted             bool   `json:"isDeleted" bson:"isDeleted"`
}

// CreateCategoryRequest is the body of POST /categories.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
