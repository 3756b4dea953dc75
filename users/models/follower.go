// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// FollowersCollection holds one document per follow relationship.
const FollowersCollection = "followers"

// FollowerIndexes keeps a relationship from being recorded twice.
var FollowerIndexes = []interfaces.Index{
	{Fields: []string{"follower", "following"}, Unique: true},
	{Fields: []string{"following"}},
}

// Follower records that Follower follows Following. Both hold user ids.
type Follower struct {
	interfaces.BaseEntity `bson:",inline"`
	Follower              string    `json:"follower" bson:"follower"`
	Following             string    `json:"following" bson:"following"`
	FollowedAt            time.Time `json:"followedAt" bson:"followedAt"`
}

// FollowStatus is the response of GET /users/:id/follow-status.
type FollowStatus struct {
	IsFollowing bool `json:"isFollowing"`
}
