package models

import "time"

// Profile is the identity record a post author or commenter resolves to.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Name      string    `gorm:"not null" json:"name" bson:"name"`
	Avatar    string    `json:"avatar" bson:"avatar"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// PostIDs is the author index, oldest first.
	PostIDs []string `gorm:"-" json:"posts" bson:"posts"`
}

// Summary returns the fields used to populate posts and comments.
func (p *Profile) Summary() *AuthorSummary {
	return &AuthorSummary{ID: p.ID, Name: p.Name, Avatar: p.Avatar}
}

// AuthorSummary is the populated author of a post or comment.
type AuthorSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// AuthorPost is a row of the relational author index.
type AuthorPost struct {
	AuthorID  string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time `gorm:"not null"`
}
