package blob

import (
	"github.com/xpingli/qiime2/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed Store rooted at the
// provided path. Returns the interface so call sites depend on it rather
// than the concrete implementation.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
