package shelves

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db), db
}

func createShelf(t *testing.T, db *gorm.DB, userID uint, identifier string) *entities.Shelf {
	shelf := &entities.Shelf{UserID: userID, Identifier: identifier, Name: identifier}
	require.NoError(t, db.Create(shelf).Error)
	return shelf
}

func TestGetOrCreateShelf(t *testing.T) {
	repo, db := setupTestDB(t)
	existing := createShelf(t, db, 1, entities.ShelfRead)

	shelf, err := repo.GetOrCreateShelf(1, entities.ShelfRead)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, shelf.ID)

	custom, err := repo.GetOrCreateShelf(1, "sci-fi-favourites")
	require.NoError(t, err)
	assert.NotZero(t, custom.ID)
	assert.True(t, custom.Editable)
	assert.Equal(t, "sci-fi-favourites", custom.Identifier)
}

func TestShelveBook(t *testing.T) {
	repo, db := setupTestDB(t)
	shelf := createShelf(t, db, 1, entities.ShelfRead)
	date := time.Date(2020, 10, 28, 0, 0, 0, 0, time.UTC)

	shelving, created, err := repo.ShelveBook(1, shelf.ID, 5, date)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, date, shelving.ShelvedDate.UTC())

	count, err := repo.CountShelvings(1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestShelveBookReplayIsNoOp(t *testing.T) {
	repo, db := setupTestDB(t)
	shelf := createShelf(t, db, 1, entities.ShelfRead)
	date := time.Date(2020, 10, 28, 0, 0, 0, 0, time.UTC)

	first, created, err := repo.ShelveBook(1, shelf.ID, 5, date)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.ShelveBook(1, shelf.ID, 5, date.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, date, second.ShelvedDate.UTC())

	count, err := repo.CountShelvings(1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFirstShelvingWins(t *testing.T) {
	repo, db := setupTestDB(t)
	toRead := createShelf(t, db, 1, entities.ShelfToRead)
	read := createShelf(t, db, 1, entities.ShelfRead)
	original := time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)

	_, created, err := repo.ShelveBook(1, toRead.ID, 5, original)
	require.NoError(t, err)
	require.True(t, created)

	// shelving onto a different shelf must not move the book
	existing, created, err := repo.ShelveBook(1, read.ID, 5, time.Now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, toRead.ID, existing.ShelfID)
	assert.Equal(t, original, existing.ShelvedDate.UTC())
}

func TestShelvingsAreScopedPerUser(t *testing.T) {
	repo, db := setupTestDB(t)
	shelfUser1 := createShelf(t, db, 1, entities.ShelfRead)
	shelfUser2 := createShelf(t, db, 2, entities.ShelfRead)
	date := time.Now().UTC()

	_, created, err := repo.ShelveBook(1, shelfUser1.ID, 5, date)
	require.NoError(t, err)
	assert.True(t, created)

	// a different user shelving the same book is a fresh shelving
	_, created, err = repo.ShelveBook(2, shelfUser2.ID, 5, date)
	require.NoError(t, err)
	assert.True(t, created)
}
