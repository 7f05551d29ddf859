package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context together with the gorm transaction a
// write flow runs in. Repos accept it so aggregate state changes and outbox
// appends share one transaction boundary.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
