package marginfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/signalward/signalward/internal/domain"
)

// FileProvider reads margin snapshots from a JSON file maintained by the
// broker bridge. Useful for local runs and for bridges that can only drop
// files.
type FileProvider struct {
	path     string
	staleAge time.Duration
}

// NewFileProvider reads snapshots from path. Snapshots older than staleAge
// are reported as disconnected; staleAge <= 0 disables the check.
func NewFileProvider(path string, staleAge time.Duration) *FileProvider {
	return &FileProvider{path: path, staleAge: staleAge}
}

func (f *FileProvider) FetchMarginStatus(_ context.Context) (*domain.MarginStatus, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read margin snapshot %s: %w", f.path, err)
	}
	var status domain.MarginStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("parse margin snapshot %s: %w", f.path, err)
	}
	if f.staleAge > 0 && !status.Timestamp.IsZero() && time.Since(status.Timestamp) > f.staleAge {
		status.IsConnected = false
	}
	return &status, nil
}
