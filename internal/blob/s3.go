package blob

import (
	"context"

	s3store "github.com/xpingli/qiime2/internal/infra/blob/s3"
)

// S3Config aliases the S3 driver configuration.
type S3Config = s3store.Config

// NewS3 constructs an S3-backed Store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3-backed Store from process environment.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return s3store.OpenFromEnv(ctx)
}
