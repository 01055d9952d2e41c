package types

import "context"

type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}
