package storage

import (
	"context"
	"errors"
	"fmt"

	"postservice/schemas"
)

var (
	StorageError = errors.New("storage")
	ErrCollision = fmt.Errorf("%w.collision", StorageError)
	ErrNotFound  = fmt.Errorf("%w.not_found", StorageError)
)

// AnyVersion disables the version check on a write.
const AnyVersion = -1

// Storage is the document store holding posts.
//
// Writes that take expectedVersion only apply when the stored version equals
// it, unless AnyVersion is passed. Every successful write bumps the version.
type Storage interface {
	PutPost(ctx context.Context, post *schemas.Post) error
	// GetPost looks the document up by key.
	GetPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error)
	// FindPost queries by the postId field.
	FindPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error)
	GetUserPosts(ctx context.Context, userId schemas.UserId) ([]*schemas.Post, error)
	GetAllPosts(ctx context.Context) ([]*schemas.Post, error)
	ReplacePost(ctx context.Context, post *schemas.Post, expectedVersion int) (*schemas.Post, error)
	SetComments(ctx context.Context, postId schemas.PostId, comments []schemas.Comment, expectedVersion int) (*schemas.Post, error)
	DeletePost(ctx context.Context, postId schemas.PostId) error
}
