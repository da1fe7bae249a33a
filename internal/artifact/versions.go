package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// CurrentFile names the artifact a model root currently serves.
const CurrentFile = "CURRENT"

// VersionDir is where the artifact with id lives under root.
func VersionDir(root string, id uuid.UUID) string {
	return filepath.Join(root, id.String())
}

// Publish saves a into its own version directory under root and then
// points root's CURRENT file at it. Earlier versions are left in place.
func Publish(ctx context.Context, a *Artifact, root string) (string, error) {
	if a == nil {
		return "", apperrors.NothingToSave.Explain("no artifact")
	}
	dir := VersionDir(root, a.ID)
	if err := Save(ctx, a, dir); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(root, CurrentFile), []byte(a.ID.String()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return dir, nil
}

// Current returns the ID recorded in root's CURRENT file.
func Current(root string) (uuid.UUID, error) {
	raw, err := os.ReadFile(filepath.Join(root, CurrentFile))
	if err != nil {
		return uuid.Nil, apperrors.ArtifactNotFound.Explain("%s: no published artifact", root).Wrap(err)
	}
	id, err := uuid.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return uuid.Nil, apperrors.ArtifactNotFound.Explain("%s: invalid %s", root, CurrentFile).Wrap(err)
	}
	return id, nil
}

// LoadCurrent loads the artifact root's CURRENT file points at.
func LoadCurrent(ctx context.Context, root string) (*Artifact, error) {
	id, err := Current(root)
	if err != nil {
		return nil, err
	}
	return LoadVersion(ctx, VersionDir(root, id), id)
}

// LoadVersion loads dir and requires it to hold the artifact with id.
func LoadVersion(ctx context.Context, dir string, id uuid.UUID) (*Artifact, error) {
	a, err := Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	if a.ID != id {
		return nil, apperrors.ArtifactNotFound.Explain("%s holds artifact %s, expected %s", dir, a.ID, id)
	}
	return a, nil
}
