package mongostorage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"postservice/schemas"
	pstorage "postservice/storage"
)

const collName = "posts"

type storage struct {
	client          *mongo.Client
	postsCollection *mongo.Collection
}

func NewStorage(ctx context.Context, mongoURL string, mongoName string) (*storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo failed: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo failed: %w", err)
	}

	postsCollection := client.Database(mongoName).Collection(collName)
	if err := ensureIndexes(ctx, postsCollection); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &storage{
		client:          client,
		postsCollection: postsCollection,
	}, nil
}

func ensureIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "postId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "postedBy", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to ensure indexes %w", err)
	}
	return nil
}

func (s *storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *storage) PutPost(ctx context.Context, post *schemas.Post) error {
	// key and field must never drift apart
	post.PostID = post.ID
	_, err := s.postsCollection.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("insertion failed: %w", err)
	}
	return nil
}

func (s *storage) GetPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error) {
	return s.findOne(ctx, bson.M{"_id": postId})
}

func (s *storage) FindPost(ctx context.Context, postId schemas.PostId) (*schemas.Post, error) {
	return s.findOne(ctx, bson.M{"postId": postId})
}

func (s *storage) findOne(ctx context.Context, filter bson.M) (*schemas.Post, error) {
	var post schemas.Post
	err := s.postsCollection.FindOne(ctx, filter).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %v", pstorage.ErrNotFound, filter)
		}
		return nil, fmt.Errorf("failed to extract: %w", err)
	}
	return normalized(&post), nil
}

func (s *storage) GetUserPosts(ctx context.Context, userId schemas.UserId) ([]*schemas.Post, error) {
	return s.find(ctx, bson.M{"postedBy": string(userId)})
}

func (s *storage) GetAllPosts(ctx context.Context) ([]*schemas.Post, error) {
	return s.find(ctx, bson.M{})
}

func (s *storage) find(ctx context.Context, filter bson.M) ([]*schemas.Post, error) {
	cursor, err := s.postsCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	postList := make([]*schemas.Post, 0)
	if err = cursor.All(ctx, &postList); err != nil {
		return nil, fmt.Errorf("posts mapping failed: %w", err)
	}
	for _, p := range postList {
		normalized(p)
	}
	return postList, nil
}

// ReplacePost writes every field of post over the stored document.
func (s *storage) ReplacePost(ctx context.Context, post *schemas.Post, expectedVersion int) (*schemas.Post, error) {
	mongoCommand := bson.D{
		{
			Key: "$set", Value: bson.D{
				{Key: "postId", Value: post.ID},
				{Key: "createdAt", Value: post.CreatedAt},
				{Key: "postedBy", Value: post.PostedBy},
				{Key: "title", Value: post.Title},
				{Key: "description", Value: post.Description},
				{Key: "image", Value: post.Image},
				{Key: "lectureURL", Value: post.LectureURL},
				{Key: "comments", Value: nonNil(post.Comments)},
			},
		},
		{
			Key: "$inc", Value: bson.D{{Key: "version", Value: 1}},
		},
	}
	return s.update(ctx, post.ID, expectedVersion, mongoCommand)
}

func (s *storage) SetComments(ctx context.Context, postId schemas.PostId, comments []schemas.Comment, expectedVersion int) (*schemas.Post, error) {
	mongoCommand := bson.D{
		{
			Key: "$set", Value: bson.D{{Key: "comments", Value: nonNil(comments)}},
		},
		{
			Key: "$inc", Value: bson.D{{Key: "version", Value: 1}},
		},
	}
	return s.update(ctx, postId, expectedVersion, mongoCommand)
}

func (s *storage) update(ctx context.Context, postId schemas.PostId, expectedVersion int, mongoCommand bson.D) (*schemas.Post, error) {
	mongoSelector := bson.D{{Key: "_id", Value: postId}}
	if expectedVersion != pstorage.AnyVersion {
		mongoSelector = append(mongoSelector, bson.E{Key: "version", Value: expectedVersion})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	result := s.postsCollection.FindOneAndUpdate(ctx, mongoSelector, mongoCommand, opts)

	var updated schemas.Post
	err := result.Decode(&updated)
	if err == nil {
		return normalized(&updated), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	if expectedVersion == pstorage.AnyVersion {
		return nil, fmt.Errorf("%w: %s", pstorage.ErrNotFound, postId)
	}

	// the selector also carried a version, find out which part missed
	count, err := s.postsCollection.CountDocuments(ctx, bson.M{"_id": postId})
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", pstorage.ErrNotFound, postId)
	}
	return nil, fmt.Errorf("%w: %s changed since version %d", pstorage.ErrCollision, postId, expectedVersion)
}

func (s *storage) DeletePost(ctx context.Context, postId schemas.PostId) error {
	res, err := s.postsCollection.DeleteOne(ctx, bson.M{"_id": postId})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", pstorage.ErrNotFound, postId)
	}
	return nil
}

func normalized(p *schemas.Post) *schemas.Post {
	p.Comments = nonNil(p.Comments)
	return p
}

func nonNil(comments []schemas.Comment) []schemas.Comment {
	if comments == nil {
		return []schemas.Comment{}
	}
	return comments
}
