package database

import (
	"fmt"

	"deepthoughts/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserFriend{},
		&models.Thought{},
		&models.Reaction{},
	}
}

// Migrate registers the custom friend join table and brings the schema up to
// date with PersistentModels.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Friends", &models.UserFriend{}); err != nil {
		return fmt.Errorf("failed to set up user_friends join table: %w", err)
	}
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
