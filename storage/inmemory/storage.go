package inmemory

import (
	"context"
	"fmt"
	"sync"

	"postservice/schemas"
	"postservice/storage"
)

type MemoryStorage struct {
	mu sync.RWMutex

	postById map[schemas.PostId]*schemas.Post
	// insertion order, the "store order" for listings
	order []schemas.PostId
}

func NewInMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		postById: map[schemas.PostId]*schemas.Post{},
	}
}

func (s *MemoryStorage) PutPost(_ context.Context, post *schemas.Post) error {
	if post == nil || post.ID == "" {
		return fmt.Errorf("post without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postById[post.ID]; !ok {
		s.order = append(s.order, post.ID)
	}
	stored := post.Copy()
	stored.PostID = stored.ID
	s.postById[post.ID] = stored
	return nil
}

func (s *MemoryStorage) GetPost(_ context.Context, postId schemas.PostId) (*schemas.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.postById[postId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, postId)
	}
	return post.Copy(), nil
}

func (s *MemoryStorage) FindPost(_ context.Context, postId schemas.PostId) (*schemas.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if post := s.postById[id]; post.PostID == postId {
			return post.Copy(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, postId)
}

func (s *MemoryStorage) GetUserPosts(_ context.Context, userId schemas.UserId) ([]*schemas.Post, error) {
	return s.collect(func(p *schemas.Post) bool { return p.PostedBy == userId }), nil
}

func (s *MemoryStorage) GetAllPosts(_ context.Context) ([]*schemas.Post, error) {
	return s.collect(func(*schemas.Post) bool { return true }), nil
}

func (s *MemoryStorage) collect(match func(*schemas.Post) bool) []*schemas.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*schemas.Post, 0)
	for _, id := range s.order {
		if post := s.postById[id]; match(post) {
			result = append(result, post.Copy())
		}
	}
	return result
}

func (s *MemoryStorage) ReplacePost(_ context.Context, post *schemas.Post, expectedVersion int) (*schemas.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lockedCheck(post.ID, expectedVersion)
	if err != nil {
		return nil, err
	}

	replaced := post.Copy()
	replaced.PostID = replaced.ID
	replaced.Version = current.Version + 1
	s.postById[post.ID] = replaced
	return replaced.Copy(), nil
}

func (s *MemoryStorage) SetComments(_ context.Context, postId schemas.PostId, comments []schemas.Comment, expectedVersion int) (*schemas.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lockedCheck(postId, expectedVersion)
	if err != nil {
		return nil, err
	}

	updated := current.Copy()
	updated.Comments = schemas.CopyComments(comments)
	updated.Version++
	s.postById[postId] = updated
	return updated.Copy(), nil
}

func (s *MemoryStorage) DeletePost(_ context.Context, postId schemas.PostId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postById[postId]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, postId)
	}
	delete(s.postById, postId)
	for i, id := range s.order {
		if id == postId {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStorage) lockedCheck(postId schemas.PostId, expectedVersion int) (*schemas.Post, error) {
	current, ok := s.postById[postId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, postId)
	}
	if expectedVersion != storage.AnyVersion && current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s at version %d, expected %d", storage.ErrCollision, postId, current.Version, expectedVersion)
	}
	return current, nil
}
