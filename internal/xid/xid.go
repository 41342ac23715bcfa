package xid

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageName builds a collision-safe file name for an uploaded product
// image: a second-resolution timestamp plus a short random suffix, with
// the original extension lowercased.
func ImageName(ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return time.Now().UTC().Format("20060102150405") + "_" + suffix + strings.ToLower(ext)
}
