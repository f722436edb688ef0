package database

import "pawfeed/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.AuthorPost{},
	}
}
