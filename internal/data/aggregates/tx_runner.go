package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

// TxRunner is the transaction boundary used by carousel writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

const (
	defaultTxAttempts = 3
	defaultTxBackoff  = 25 * time.Millisecond
)

// gormTxRunner reruns a transaction that lost a lock race. Version appends for
// different articles share the slide version index, so Postgres may pick one
// of them as a deadlock victim and sqlite may report the file as busy. fn must
// not keep state across attempts.
type gormTxRunner struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db, attempts: defaultTxAttempts, backoff: defaultTxBackoff}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "carousel.tx", "transaction runner has nil db", nil)
	}
	attempts := r.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(time.Duration(i) * r.backoff):
			}
		}
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if !lostLockRace(ctx, err) {
			return err
		}
	}
	return err
}

// lostLockRace reports contention errors. Expired contexts are not retried.
func lostLockRace(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return domainagg.IsCode(MapError("carousel.tx", err), domainagg.CodeRetryable)
}
