// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
)

// Vote service specific errors
var (
	ErrPostNotFound       = errors.New("post not found")
	ErrInvalidVoteType    = errors.New("invalid vote type")
	ErrSelfVote           = errors.New("author cannot vote on own post")
	ErrNotVoted           = errors.New("not voted yet")
	ErrMissingUserContext = errors.New("missing user context")
)

// Error codes
const (
	CodePostNotFound       = "POST_NOT_FOUND"
	CodeInvalidVoteType    = "INVALID_VOTE_TYPE"
	CodeSelfVote           = "SELF_VOTE"
	CodeVoteNotFound       = "VOTE_NOT_FOUND"
	CodeMissingUserContext = "MISSING_USER_CONTEXT"
)

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrPostNotFound, http.StatusNotFound, CodePostNotFound, "Post not found"},
	{ErrInvalidVoteType, http.StatusBadRequest, CodeInvalidVoteType, "Invalid vote type"},
	{ErrSelfVote, http.StatusForbidden, CodeSelfVote, "Author cannot vote on their own post"},
	{ErrNotVoted, http.StatusNotFound, CodeVoteNotFound, "Not Voted yet!"},
	{ErrMissingUserContext, http.StatusUnauthorized, CodeMissingUserContext, "You are not authorized"},
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return server.SendError(c, m.status, m.code, m.message, nil)
		}
	}
	return server.HandleError(c, err)
}
