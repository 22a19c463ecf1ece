package reviews

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
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

	return NewRepository(db)
}

func TestCreateReview(t *testing.T) {
	repo := setupTestDB(t)

	review, err := repo.CreateReview(1, 5, "mixed feelings", 2.0, entities.PrivacyUnlisted)
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, "mixed feelings", review.Content)
	assert.Equal(t, 2.0, review.Rating)
	assert.Equal(t, entities.PrivacyUnlisted, review.Privacy)
}

func TestCreateRating(t *testing.T) {
	repo := setupTestDB(t)

	rating, err := repo.CreateRating(1, 5, 3.0, entities.PrivacyUnlisted)
	require.NoError(t, err)
	assert.NotZero(t, rating.ID)
	assert.Equal(t, 3.0, rating.Rating)
	assert.Equal(t, entities.PrivacyUnlisted, rating.Privacy)
}

func TestHasReview(t *testing.T) {
	repo := setupTestDB(t)

	exists, err := repo.HasReview(1, 5)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.CreateReview(1, 5, "good", 4.0, entities.PrivacyPublic)
	require.NoError(t, err)

	exists, err = repo.HasReview(1, 5)
	require.NoError(t, err)
	assert.True(t, exists)

	// other books and users are unaffected
	exists, err = repo.HasReview(1, 6)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = repo.HasReview(2, 5)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHasReviewCoversRatings(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.CreateRating(1, 5, 3.0, entities.PrivacyPublic)
	require.NoError(t, err)

	// a rating-only review also blocks a second import record
	exists, err := repo.HasReview(1, 5)
	require.NoError(t, err)
	assert.True(t, exists)
}
