package dbutil

import (
	"gorm.io/gorm"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// FindOne returns the first row matched by db, or ArtifactNotFound when
// there is none.
func FindOne[T any](db *gorm.DB) (*T, error) {
	var item T
	result := db.Limit(1).Find(&item)
	if result.Error != nil {
		return nil, WrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ArtifactNotFound
	}
	return &item, nil
}
