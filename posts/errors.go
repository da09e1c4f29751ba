package posts

import "errors"

var (
	// ErrForbidden means the caller's role or ownership does not allow the operation
	ErrForbidden = errors.New("forbidden")

	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")

	// ErrConflict is only returned with conditional writes enabled
	ErrConflict = errors.New("post was modified by another request")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrCommentNotFound)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
