package dbutil

import (
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

const DuplicateKeyErrorCode = "23505"

// WrapError maps gorm and driver errors onto application error kinds.
func WrapError(err error) error {
	var pgErr *pgconn.PgError
	var appErr *apperrors.Error

	switch {
	case err == nil:
		return nil
	case apperrors.As(err, &appErr):
		return err
	case apperrors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ArtifactNotFound.Wrap(err)
	case apperrors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.InvalidInput.Explain("duplication of key").Wrap(err)
	case apperrors.As(err, &pgErr) && pgErr.Code == DuplicateKeyErrorCode:
		return apperrors.InvalidInput.Explain("duplication of key").Wrap(err)
	}
	return err
}
