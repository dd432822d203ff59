package storage

import "gorm.io/gorm"

// Migrate applies the schema for all persistent entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Student{},
		&ChatTurn{},
	)
}
