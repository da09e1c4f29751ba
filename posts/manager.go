package posts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"postservice/schemas"
	"postservice/storage"
)

type Option func(*Manager)

// WithConditionalWrites makes read-modify-write operations fail with
// ErrConflict when the post changed between the read and the write. Without
// it the last write wins.
func WithConditionalWrites(enabled bool) Option {
	return func(m *Manager) {
		m.conditionalWrites = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager applies the post and comment rules on top of a document store.
// Every operation takes the caller's identity explicitly.
type Manager struct {
	storage           storage.Storage
	conditionalWrites bool
	now               func() time.Time
}

func NewManager(storage storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		now:     schemas.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create(ctx context.Context, identity schemas.Identity, content schemas.PostContent) (*schemas.Post, error) {
	if !identity.IsTeacher() {
		return nil, fmt.Errorf("%w: role %q cannot create posts", ErrForbidden, identity.Role)
	}

	id := schemas.NewPostId()
	post := &schemas.Post{
		ID:        id,
		PostID:    id,
		CreatedAt: m.now(),
		PostedBy:  identity.Username,
		Comments:  []schemas.Comment{},
	}
	post.ApplyContent(content)

	if err := m.storage.PutPost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (m *Manager) GetByID(ctx context.Context, postId schemas.PostId) (*schemas.Post, error) {
	post, err := m.storage.FindPost(ctx, postId)
	if err != nil {
		return nil, translate(err, "find post %s", postId)
	}
	return post, nil
}

// GetByUser returns posts in whatever order the store yields them.
func (m *Manager) GetByUser(ctx context.Context, userId schemas.UserId) ([]*schemas.Post, error) {
	postList, err := m.storage.GetUserPosts(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("posts of %s: %w", userId, err)
	}
	return postList, nil
}

// ListAll returns every post, most recent first.
func (m *Manager) ListAll(ctx context.Context) ([]*schemas.Post, error) {
	postList, err := m.storage.GetAllPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("all posts: %w", err)
	}
	sort.SliceStable(postList, func(i, j int) bool {
		return postList[i].CreatedAt.After(postList[j].CreatedAt)
	})
	return postList, nil
}

func (m *Manager) Update(ctx context.Context, postId schemas.PostId, identity schemas.Identity, content schemas.PostContent) (*schemas.Post, error) {
	post, err := m.storage.GetPost(ctx, postId)
	if err != nil {
		return nil, translate(err, "load post %s", postId)
	}
	if !canModifyPost(identity, post) {
		return nil, fmt.Errorf("%w: %s cannot update post %s", ErrForbidden, identity.Username, postId)
	}

	readVersion := post.Version
	post.ApplyContent(content)

	updated, err := m.storage.ReplacePost(ctx, post, m.expected(readVersion))
	if err != nil {
		return nil, translate(err, "update post %s", postId)
	}
	return updated, nil
}

func (m *Manager) Delete(ctx context.Context, postId schemas.PostId, identity schemas.Identity) error {
	post, err := m.storage.GetPost(ctx, postId)
	if err != nil {
		return translate(err, "load post %s", postId)
	}
	if !canModifyPost(identity, post) {
		return fmt.Errorf("%w: %s cannot delete post %s", ErrForbidden, identity.Username, postId)
	}

	if err := m.storage.DeletePost(ctx, postId); err != nil {
		return translate(err, "delete post %s", postId)
	}
	return nil
}

func canModifyPost(identity schemas.Identity, post *schemas.Post) bool {
	return identity.IsAdmin() || identity.Username == post.PostedBy
}

func (m *Manager) expected(version int) int {
	if m.conditionalWrites {
		return version
	}
	return storage.AnyVersion
}

// translate maps storage errors onto the errors callers act on.
func translate(err error, format string, args ...interface{}) error {
	op := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrPostNotFound)
	case errors.Is(err, storage.ErrCollision):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
