package repository

import (
	"context"
	"errors"
	"fmt"

	"pawfeed/internal/models"
	"pawfeed/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// mongoPostRepository keeps likes and comments embedded in the post document,
// so every mutation is one conditional single-document update.
type mongoPostRepository struct {
	posts    *mongo.Collection
	profiles *mongo.Collection
	log      *observability.RepoLogger
}

// NewMongoPostRepository creates a MongoDB-backed post repository.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{
		posts:    db.Collection(postsCollection),
		profiles: db.Collection(profilesCollection),
		log:      observability.NewRepoLogger(backendMongo, postsCollection),
	}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery(backendMongo, "create", postsCollection)()

	post.Normalize()
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewUpstreamError("create post", err)
	}

	_, err := r.profiles.UpdateOne(ctx,
		bson.M{"_id": post.AuthorID},
		bson.M{"$push": bson.M{"posts": post.ID}},
	)
	if err != nil {
		// Roll the insert back so the index never misses an existing post.
		if _, rbErr := r.posts.DeleteOne(ctx, bson.M{"_id": post.ID}); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback insert: %w", rbErr))
		}
		r.log.LogError(ctx, err, "create_index")
		return models.NewUpstreamError("create post", err)
	}

	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery(backendMongo, "get", postsCollection)()

	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewUpstreamError("get post", err)
	}
	post.Normalize()
	return &post, nil
}

func (r *mongoPostRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.posts.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, models.NewUpstreamError("check post", err)
	}
	return n > 0, nil
}

// Delete drops the author's index entry before the document, so a failure at
// either step leaves a state that a retried Delete finishes cleanly.
func (r *mongoPostRepository) Delete(ctx context.Context, id, authorID string) error {
	defer observability.TrackQuery(backendMongo, "delete", postsCollection)()

	pulled, err := r.profiles.UpdateOne(ctx,
		bson.M{"_id": authorID, "posts": id},
		bson.M{"$pull": bson.M{"posts": id}},
	)
	if err != nil {
		r.log.LogError(ctx, err, "delete_index")
		return models.NewUpstreamError("delete post", err)
	}

	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id, "author_id": authorID})
	if err != nil {
		if pulled.ModifiedCount > 0 {
			if _, rbErr := r.profiles.UpdateOne(ctx,
				bson.M{"_id": authorID},
				bson.M{"$addToSet": bson.M{"posts": id}},
			); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("restore index: %w", rbErr))
			}
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewUpstreamError("delete post", err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Post", id)
	}

	r.log.LogDelete(ctx, map[string]any{"post_id": id, "author_id": authorID})
	return nil
}

func (r *mongoPostRepository) List(ctx context.Context) ([]models.Post, error) {
	defer observability.TrackQuery(backendMongo, "list", postsCollection)()
	return r.find(ctx, bson.M{})
}

func (r *mongoPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	defer observability.TrackQuery(backendMongo, "list_by_author", postsCollection)()
	return r.find(ctx, bson.M{"author_id": authorID})
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	cur, err := r.posts.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, models.NewUpstreamError("list posts", err)
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, models.NewUpstreamError("list posts", err)
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}

func (r *mongoPostRepository) AddLike(ctx context.Context, postID, actorID string) (bool, error) {
	defer observability.TrackQuery(backendMongo, "add_like", postsCollection)()

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": actorID}},
		bson.M{"$addToSet": bson.M{"likes": actorID}},
	)
	if err != nil {
		r.log.LogError(ctx, err, "add_like")
		return false, models.NewUpstreamError("like post", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPostRepository) RemoveLike(ctx context.Context, postID, actorID string) (bool, error) {
	defer observability.TrackQuery(backendMongo, "remove_like", postsCollection)()

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": actorID},
		bson.M{"$pull": bson.M{"likes": actorID}},
	)
	if err != nil {
		r.log.LogError(ctx, err, "remove_like")
		return false, models.NewUpstreamError("unlike post", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPostRepository) AppendComment(ctx context.Context, postID string, c *models.Comment) error {
	defer observability.TrackQuery(backendMongo, "append_comment", postsCollection)()

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": c}},
	)
	if err != nil {
		r.log.LogError(ctx, err, "append_comment")
		return models.NewUpstreamError("add comment", err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	c.PostID = postID
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "comment_id": c.ID})
	return nil
}

func (r *mongoPostRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	defer observability.TrackQuery(backendMongo, "list_comments", postsCollection)()

	var doc struct {
		Comments []models.Comment `bson:"comments"`
	}
	err := r.posts.FindOne(ctx, bson.M{"_id": postID},
		options.FindOne().SetProjection(bson.M{"comments": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewUpstreamError("list comments", err)
	}
	if doc.Comments == nil {
		doc.Comments = []models.Comment{}
	}
	return doc.Comments, nil
}

func (r *mongoPostRepository) Ping(ctx context.Context) error {
	return r.posts.Database().Client().Ping(ctx, readpref.Primary())
}
