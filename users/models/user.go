// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// CollectionName is the store collection holding users.
const CollectionName = "users"

// Account status values.
const (
	StatusActive  = "Active"
	StatusBlocked = "Blocked"
)

// SearchableFields are matched by the searchTerm list parameter.
var SearchableFields = []string{"fullName", "email", "username"}

// PublicFields are embedded when another record references a user.
var PublicFields = []string{"fullName", "username", "email", "profilePicture", "totalFollowers", "totalFollowing"}

// Indexes declares the unique login identifiers.
var Indexes = []interfaces.Index{
	{Fields: []string{"email"}, Unique: true},
	{Fields: []string{"username"}, Unique: true},
}

// Genders accepted on a profile.
var Genders = []string{"Male", "Female", "Other"}

// SocialPlatforms accepted in social links.
var SocialPlatforms = []string{"Facebook", "Instagram", "Github", "Twitter", "Youtube", "Linkedin"}

// SocialLink is one profile link.
type SocialLink struct {
	Platform string `json:"platform" bson:"platform"`
	URL      string `json:"url" bson:"url"`
}

// User is an account. Password holds the bcrypt hash and is never sent to clients.
type User struct {
	interfaces.BaseEntity `bson:",inline"`
	FullName              string       `json:"fullName" bson:"fullName"`
	Username              string       `json:"username" bson:"username"`
	Email                 string       `json:"email" bson:"email"`
	Password              string       `json:"password,omitempty" bson:"password,omitempty"`
	PasswordChangeAt      *time.Time   `json:"passwordChangeAt,omitempty" bson:"passwordChangeAt,omitempty"`
	Bio                   string       `json:"bio" bson:"bio"`
	Designation           string       `json:"designation" bson:"designation"`
	Phone                 string       `json:"phone" bson:"phone"`
	Location              string       `json:"location" bson:"location"`
	ProfilePicture        string       `json:"profilePicture" bson:"profilePicture"`
	Gender                string       `json:"gender,omitempty" bson:"gender,omitempty"`
	DateOfBirth           string       `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	SocialLinks           []SocialLink `json:"socialLinks" bson:"socialLinks"`
	Role                  string       `json:"role" bson:"role"`
	Status                string       `json:"status" bson:"status"`
	TotalFollowers        int64        `json:"totalFollowers" bson:"totalFollowers"`
	TotalFollowing        int64        `json:"totalFollowing" bson:"totalFollowing"`
	TotalPosts            int64        `json:"totalPosts" bson:"totalPosts"`
	IsVerified            bool         `json:"isVerified" bson:"isVerified"`
	IsPremiumUser         bool         `json:"isPremiumUser" bson:"isPremiumUser"`
	IsDeleted             bool         `json:"isDeleted" bson:"isDeleted"`
}

// Public returns a copy without the password hash.
func (u *User) Public() *User {
	out := *u
	out.Password = ""
	return &out
}

// IsBlocked reports whether the account is blocked.
func (u *User) IsBlocked() bool {
	return u.Status == StatusBlocked
}

// UpdateProfileRequest is the body of PATCH /users/update-profile. Nil
// fields are left unchanged.
type UpdateProfileRequest struct {
	FullName       *string `json:"fullName"`
	Bio            *string `json:"bio"`
	Designation    *string `json:"designation"`
	Phone          *string `json:"phone"`
	Location       *string `json:"location"`
	DateOfBirth    *string `json:"dateOfBirth"`
	Gender         *string `json:"gender"`
	ProfilePicture *string `json:"profilePicture"`
}

// UpdateSocialLinksRequest is the body of PUT /users/profile/update-social-links.
type UpdateSocialLinksRequest struct {
	SocialLinks []SocialLink `json:"socialLinks"`
}
