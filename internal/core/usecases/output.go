package usecases

import (
	"encoding/json"
	"io"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// WriteOutput writes snapshots as a single JSON array followed by a newline.
// A nil or empty slice is written as [].
func WriteOutput(w io.Writer, snapshots []domain.FilteredSnapshot) error {
	if snapshots == nil {
		snapshots = []domain.FilteredSnapshot{}
	}
	data, err := json.Marshal(snapshots)
	if err != nil {
		return &SerializationError{Err: err}
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return &SerializationError{Err: err}
	}
	return nil
}
