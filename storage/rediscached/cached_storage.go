package rediscached

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"postservice/schemas"
	"postservice/storage"
	"postservice/storage/rediscached/redisgeneral"
)

// cachedPost is the cache representation of a post. Unlike the API shape it
// keeps the key and the version.
type cachedPost struct {
	ID          schemas.PostId    `json:"id"`
	PostID      schemas.PostId    `json:"postId"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"createdAt"`
	PostedBy    schemas.UserId    `json:"postedBy"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	LectureURL  string            `json:"lectureURL"`
	Comments    []schemas.Comment `json:"comments"`
}

func (cp cachedPost) GetVersion() int {
	return cp.Version
}

func fromPost(p *schemas.Post) cachedPost {
	return cachedPost{
		ID:          p.ID,
		PostID:      p.PostID,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		PostedBy:    p.PostedBy,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		LectureURL:  p.LectureURL,
		Comments:    p.Comments,
	}
}

func (cp cachedPost) toPost() *schemas.Post {
	p := schemas.Post{
		ID:          cp.ID,
		PostID:      cp.PostID,
		Version:     cp.Version,
		CreatedAt:   cp.CreatedAt,
		PostedBy:    cp.PostedBy,
		Title:       cp.Title,
		Description: cp.Description,
		Image:       cp.Image,
		LectureURL:  cp.LectureURL,
		Comments:    cp.Comments,
	}
	return p.Copy()
}

// CachedStorage keeps single posts in redis in front of a persistent storage.
// Listings always go to the persistent storage.
type CachedStorage struct {
	persistentStorage storage.Storage
	postCache         *redisgeneral.Storage[cachedPost]
}

var _ storage.Storage = (*CachedStorage)(nil)

func NewCachedStorage(persistentStorage storage.Storage, client *redis.Client, cacheTTL time.Duration) *CachedStorage {
	return &CachedStorage{
		persistentStorage: persistentStorage,
		postCache:         redisgeneral.NewStorage[cachedPost](client, cacheTTL),
	}
}

func (cs *CachedStorage) PutPost(ctx context.Context, post *schemas.Post) error {
	if err := cs.persistentStorage.PutPost(ctx, post); err != nil {
		return err
	}
	_ = cs.remember(ctx, post)
	return nil
}

func (cs *CachedStorage) GetPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error) {
	return cs.readThrough(ctx, postId, cs.persistentStorage.GetPost)
}

// FindPost can share the key cache because key and postId field never differ.
func (cs *CachedStorage) FindPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error) {
	return cs.readThrough(ctx, postId, cs.persistentStorage.FindPost)
}

func (cs *CachedStorage) readThrough(
	ctx context.Context,
	postId schemas.PostId,
	load func(context.Context, schemas.PostId) (*schemas.Post, error),
) (*schemas.Post, error) {
	postKey := cs.getKeyForPost(postId)

	cached, isFound, err := cs.postCache.Get(ctx, postKey)
	if err != nil {
		log.Warn().Err(err).Str("postId", postId.String()).Msg("Post cache read failed")
	} else if isFound {
		return cached.toPost(), nil
	}

	actualPost, err := load(ctx, postId)
	if err != nil {
		return nil, err
	}
	if err := cs.remember(ctx, actualPost); err != nil {
		// a delete ran between the load and now
		return nil, fmt.Errorf("%w: %s deleted while loading", storage.ErrNotFound, postId)
	}
	return actualPost, nil
}

func (cs *CachedStorage) GetUserPosts(ctx context.Context, userId schemas.UserId) ([]*schemas.Post, error) {
	return cs.persistentStorage.GetUserPosts(ctx, userId)
}

func (cs *CachedStorage) GetAllPosts(ctx context.Context) ([]*schemas.Post, error) {
	return cs.persistentStorage.GetAllPosts(ctx)
}

func (cs *CachedStorage) ReplacePost(ctx context.Context, post *schemas.Post, expectedVersion int) (*schemas.Post, error) {
	replaced, err := cs.persistentStorage.ReplacePost(ctx, post, expectedVersion)
	if err != nil {
		return nil, cs.forgetOnMiss(ctx, post.ID, err)
	}
	_ = cs.remember(ctx, replaced)
	return replaced, nil
}

func (cs *CachedStorage) SetComments(ctx context.Context, postId schemas.PostId, comments []schemas.Comment, expectedVersion int) (*schemas.Post, error) {
	updated, err := cs.persistentStorage.SetComments(ctx, postId, comments, expectedVersion)
	if err != nil {
		return nil, cs.forgetOnMiss(ctx, postId, err)
	}
	_ = cs.remember(ctx, updated)
	return updated, nil
}

func (cs *CachedStorage) DeletePost(ctx context.Context, postId schemas.PostId) error {
	if err := cs.persistentStorage.DeletePost(ctx, postId); err != nil {
		return cs.forgetOnMiss(ctx, postId, err)
	}
	cs.bury(ctx, postId)
	return nil
}

// remember is best effort: the persistent write already happened. The only
// error it reports is redisgeneral.ErrTombstoned, other failures are logged.
func (cs *CachedStorage) remember(ctx context.Context, post *schemas.Post) error {
	_, err := cs.postCache.SetWithFreshness(ctx, cs.getKeyForPost(post.ID), fromPost(post))
	if errors.Is(err, redisgeneral.ErrTombstoned) {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Str("postId", post.ID.String()).Msg("Post cache write failed")
	}
	return nil
}

// bury replaces the cached post with a tombstone, so readers that loaded it
// before the delete cannot put it back.
func (cs *CachedStorage) bury(ctx context.Context, postId schemas.PostId) {
	if err := cs.postCache.Tombstone(ctx, cs.getKeyForPost(postId)); err != nil {
		log.Warn().Err(err).Str("postId", postId.String()).Msg("Post cache tombstone failed")
	}
}

// forgetOnMiss drops cache entries the persistent storage no longer agrees
// with, then hands the original error back.
func (cs *CachedStorage) forgetOnMiss(ctx context.Context, postId schemas.PostId, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		cs.bury(ctx, postId)
	case errors.Is(err, storage.ErrCollision):
		if delErr := cs.postCache.Delete(ctx, cs.getKeyForPost(postId)); delErr != nil {
			log.Warn().Err(delErr).Str("postId", postId.String()).Msg("Post cache eviction failed")
		}
	}
	return err
}

func (cs *CachedStorage) getKeyForPost(postID schemas.PostId) string {
	return fmt.Sprintf("lsps:posts:%s", postID)
}
