package projection

import (
	"errors"

	"pawfeed/internal/models"
)

// Op names the user action a Notice is about.
type Op string

const (
	OpLoad     Op = "load"
	OpLike     Op = "like"
	OpComment  Op = "comment"
	OpDelete   Op = "delete"
	OpComments Op = "comments"
)

// Notice is a user-facing message emitted after a failed action was reverted.
type Notice struct {
	Op      Op
	PostID  string
	Code    string
	Message string
}

var opFailure = map[Op]string{
	OpLoad:     "Couldn't load posts. Please try again.",
	OpLike:     "Couldn't update like. Please try again.",
	OpComment:  "Couldn't post your comment. Please try again.",
	OpDelete:   "Couldn't delete the post. Please try again.",
	OpComments: "Couldn't refresh comments. Please try again.",
}

func newNotice(op Op, postID string, err error) Notice {
	code := models.ErrorCode(err)
	n := Notice{Op: op, PostID: postID, Code: code}

	switch code {
	case models.CodeValidation:
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			n.Message = appErr.Message
		} else {
			n.Message = "Please check your input."
		}
	case models.CodeNotFound:
		n.Message = "This post is no longer available."
	case models.CodeForbidden:
		n.Message = "You can only delete your own posts."
	case models.CodeUnauthorized:
		n.Message = "Please sign in to continue."
	default:
		n.Message = opFailure[op]
	}
	return n
}
