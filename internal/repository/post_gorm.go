package repository

import (
	"context"
	"errors"
	"time"

	"pawfeed/internal/database"
	"pawfeed/internal/models"
	"pawfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNoRows = errors.New("no rows affected")

const insertLikeSQL = `INSERT INTO post_likes (post_id, actor_id, created_at)
SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)
ON CONFLICT (post_id, actor_id) DO NOTHING`

const insertCommentSQL = `INSERT INTO comments (id, post_id, author_id, text, created_at)
SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)`

// postRepository implements PostRepository on GORM.
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger(backendSQL, "posts")}
}

func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Preload("LikeRows", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func finishPost(p *models.Post) {
	p.Likes = likeIDs(p.LikeRows)
	p.LikeRows = nil
	p.Normalize()
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery(backendSQL, "create", "posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuthorPost{
			AuthorID:  post.AuthorID,
			PostID:    post.ID,
			CreatedAt: post.CreatedAt,
		}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewUpstreamError("create post", err)
	}
	post.Normalize()
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery(backendSQL, "get", "posts")()

	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewUpstreamError("get post", err)
	}
	finishPost(&post)
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewUpstreamError("check post", err)
	}
	return n > 0, nil
}

func (r *postRepository) Delete(ctx context.Context, id, authorID string) error {
	defer observability.TrackQuery(backendSQL, "delete", "posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("author_id = ? AND post_id = ?", authorID, id).Delete(&models.AuthorPost{}).Error
	})
	switch {
	case errors.Is(err, errNoRows):
		return models.NewNotFoundError("Post", id)
	case err != nil:
		r.log.LogError(ctx, err, "delete")
		return models.NewUpstreamError("delete post", err)
	}
	r.log.LogDelete(ctx, map[string]any{"post_id": id, "author_id": authorID})
	return nil
}

func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	defer observability.TrackQuery(backendSQL, "list", "posts")()
	return r.list(r.db.WithContext(ctx))
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	defer observability.TrackQuery(backendSQL, "list_by_author", "posts")()
	return r.list(r.db.WithContext(ctx).Where("author_id = ?", authorID))
}

func (r *postRepository) list(db *gorm.DB) ([]models.Post, error) {
	var posts []models.Post
	if err := r.withDetails(db).Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, models.NewUpstreamError("list posts", err)
	}
	for i := range posts {
		finishPost(&posts[i])
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, actorID string) (bool, error) {
	defer observability.TrackQuery(backendSQL, "add_like", "post_likes")()

	res := r.db.WithContext(ctx).Exec(insertLikeSQL, postID, actorID, time.Now().UTC(), postID)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "add_like")
		return false, models.NewUpstreamError("like post", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, actorID string) (bool, error) {
	defer observability.TrackQuery(backendSQL, "remove_like", "post_likes")()

	res := r.db.WithContext(ctx).Where("post_id = ? AND actor_id = ?", postID, actorID).Delete(&models.Like{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "remove_like")
		return false, models.NewUpstreamError("unlike post", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) AppendComment(ctx context.Context, postID string, c *models.Comment) error {
	defer observability.TrackQuery(backendSQL, "append_comment", "comments")()

	res := r.db.WithContext(ctx).Exec(insertCommentSQL, c.ID, postID, c.AuthorID, c.Text, c.CreatedAt, postID)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "append_comment")
		return models.NewUpstreamError("add comment", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	c.PostID = postID
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "comment_id": c.ID})
	return nil
}

func (r *postRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	defer observability.TrackQuery(backendSQL, "list_comments", "comments")()

	ok, err := r.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}

	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("seq ASC").Find(&comments).Error; err != nil {
		return nil, models.NewUpstreamError("list comments", err)
	}
	return comments, nil
}

func (r *postRepository) Ping(ctx context.Context) error {
	return database.Ping(ctx, r.db)
}
