package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil))

	app := apperrors.NoData.Explain("empty")
	assert.Same(t, app, WrapError(app))

	assert.True(t, apperrors.Is(WrapError(gorm.ErrRecordNotFound), apperrors.ArtifactNotFound))
	assert.True(t, apperrors.Is(WrapError(gorm.ErrDuplicatedKey), apperrors.InvalidInput))

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: DuplicateKeyErrorCode})
	assert.True(t, apperrors.Is(WrapError(pgErr), apperrors.InvalidInput))

	other := errors.New("disk full")
	assert.Equal(t, other, WrapError(other))
}

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestFindOne(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&row{}))

	_, err = FindOne[row](db.Model(&row{}))
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))

	require.NoError(t, db.Create(&row{Name: "a"}).Error)
	require.NoError(t, db.Create(&row{Name: "b"}).Error)

	got, err := FindOne[row](db.Order("id DESC"))
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
}
