package blob

import (
	memorystore "github.com/xpingli/qiime2/internal/infra/blob/memory"
)

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
