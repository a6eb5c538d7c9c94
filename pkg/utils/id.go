package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateEpisodeID returns a unique identifier for one interaction episode
func GenerateEpisodeID() string {
	return "ep-" + uuid.New().String()
}

// SampleIDFromPath derives the sample identifier from a volume file name by
// stripping the directory and every extension (".nii.gz" included).
func SampleIDFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
