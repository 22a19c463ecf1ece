package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/entities"
)

// Shelves every new user gets. The identifiers double as the target
// vocabulary for import shelf mapping.
var defaultShelves = []entities.Shelf{
	{Identifier: entities.ShelfToRead, Name: "To Read", Editable: false},
	{Identifier: entities.ShelfReading, Name: "Currently Reading", Editable: false},
	{Identifier: entities.ShelfRead, Name: "Read", Editable: false},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

// Migrate runs the schema migration for all entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Shelf{},
		&entities.ShelfBook{},
		&entities.Review{},
		&entities.ReviewRating{},
		&entities.ImportJob{},
		&entities.ImportItem{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser creates a user together with the built-in shelves, in one
// transaction.
func (d *Database) CreateUser(username, email string) (*entities.User, error) {
	user := &entities.User{
		Username: username,
		Email:    email,
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		for _, shelf := range defaultShelves {
			shelf.UserID = user.ID
			if err := tx.Create(&shelf).Error; err != nil {
				return fmt.Errorf("failed to create shelf %s: %w", shelf.Identifier, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (d *Database) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := d.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := d.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
