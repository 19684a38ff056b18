package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/models"
)

// storeUpload receives one multipart file field, spools it to a temporary
// file and hands it to the blob store. The temporary file is removed whether
// or not the upload succeeds. A missing field is an InvalidInput error when
// required, otherwise a zero FileRef.
func storeUpload(ctx context.Context, blob BlobStore, r *http.Request, field, prefix string, required bool) (models.FileRef, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return models.FileRef{}, nil
		}
		return models.FileRef{}, apperr.Newf(apperr.InvalidInput, "%s file is required", field)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "tubestream-upload-*")
	if err != nil {
		return models.FileRef{}, apperr.Wrap(err, apperr.Upstream, "failed to receive upload")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		return models.FileRef{}, apperr.Wrap(err, apperr.Upstream, "failed to receive upload")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return models.FileRef{}, apperr.Wrap(err, apperr.Upstream, "failed to receive upload")
	}

	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), filepath.Ext(header.Filename))
	ref, err := blob.Store(ctx, key, tmp)
	if err != nil {
		return models.FileRef{}, apperr.Wrap(err, apperr.Upstream, "failed to store upload")
	}

	return ref, nil
}
