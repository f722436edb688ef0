package models

import "time"

// CommentMaxLength bounds Comment.Text in characters.
const CommentMaxLength = 500

// Comment is an entry in a post's append-only comment list. Seq orders rows
// in the relational store; the mongo store keeps array order instead.
type Comment struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement" json:"-" bson:"-"`
	ID        string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id" bson:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"-" bson:"-"`
	AuthorID  string    `gorm:"type:varchar(36);not null" json:"author_id" bson:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	Author *AuthorSummary `gorm:"-" json:"author,omitempty" bson:"-"`
}
