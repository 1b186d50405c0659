// internal/app/system/txn/txn.go
//
// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports them. Standalone servers do not, so Run falls
// back to executing the function directly; callers that need all-or-nothing
// behavior in that mode record compensating steps with Undo.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. If ctx already
// carries a session, fn joins it instead of starting a nested transaction.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		warnFallback(log, err)
		return fn(ctx)
	}
	return err
}

// Runner binds Run to a database so domain services can depend on a small
// interface instead of *mongo.Database.
type Runner struct {
	DB  *mongo.Database
	Log *zap.Logger
}

// Run implements the runner interface used by the domain services.
func (r Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.DB, r.Log, fn)
}

func warnFallback(log *zap.Logger, err error) {
	if log == nil {
		return
	}
	log.Warn("transactions not supported; running without transaction", zap.Error(err))
}

// IsNotSupported reports whether err says the server cannot run
// transactions (standalone mongod, or an operation illegal inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Undo collects compensating steps for writes already applied. Rollback
// runs them newest first.
type Undo struct {
	steps []func(ctx context.Context) error
}

// Push records a step that reverses the most recent write.
func (u *Undo) Push(step func(ctx context.Context) error) {
	u.steps = append(u.steps, step)
}

// Rollback runs every recorded step in reverse order and clears the list.
// Steps run even if ctx was canceled, since the writes they reverse
// already happened.
func (u *Undo) Rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		if err := u.steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	u.steps = nil
	return errors.Join(errs...)
}
