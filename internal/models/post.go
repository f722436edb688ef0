// Package models contains data structures for the application's domain models.
package models

import "time"

// CaptionMaxLength bounds Post.Caption in characters.
const CaptionMaxLength = 2200

// Post is an image post authored by a profile. Likes and Comments are
// embedded documents in the mongo store and child tables in the relational
// store; both stores hand back the same shape.
type Post struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	AuthorID    string    `gorm:"type:varchar(36);not null;index" json:"author_id" bson:"author_id"`
	ImageURL    string    `gorm:"not null" json:"image_url" bson:"image_url"`
	ImageHandle string    `gorm:"not null" json:"-" bson:"image_handle"`
	Caption     string    `gorm:"type:text" json:"caption" bson:"caption"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at" bson:"created_at"`

	Likes    []string  `gorm:"-" json:"likes" bson:"likes"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments" bson:"comments"`

	// LikeRows is the relational backing of Likes.
	LikeRows []Like `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-" bson:"-"`

	// Author is filled at read time.
	Author *AuthorSummary `gorm:"-" json:"author,omitempty" bson:"-"`
}

// Normalize replaces nil collections with empty ones so listings always
// serialize arrays.
func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// LikedBy reports whether actorID is a member of the post's like set.
func (p *Post) LikedBy(actorID string) bool {
	for _, id := range p.Likes {
		if id == actorID {
			return true
		}
	}
	return false
}

// Like is one membership row of a post's like set.
type Like struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)" json:"post_id"`
	ActorID   string    `gorm:"primaryKey;type:varchar(36)" json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the likes table name.
func (Like) TableName() string {
	return "post_likes"
}

// LikeAction is the outcome tag of a like toggle.
type LikeAction string

const (
	ActionLiked   LikeAction = "liked"
	ActionUnliked LikeAction = "unliked"
)
