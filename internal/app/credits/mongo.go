package credits

import (
	"github.com/dalemusser/eatandearn/internal/app/assignment"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	providerstore "github.com/dalemusser/eatandearn/internal/app/store/providers"
	transactionstore "github.com/dalemusser/eatandearn/internal/app/store/transactions"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewMongo builds a Service backed by the collections in db.
func NewMongo(db *mongo.Database, audit *auditlog.Logger, opts redemption.Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	users := userstore.New(db)
	orgs := organizationstore.New(db)
	providers := providerstore.New(db)
	runner := txn.Runner{DB: db, Log: logger}
	l := ledger.New(users, logger)

	return New(Deps{
		Ledger:  l,
		Tracker: assignment.New(users, orgs, l, runner, logger),
		Broker:  redemption.New(users, providers, l, runner, opts, logger),
		Txns:    transactionstore.New(db),
		Runner:  runner,
		Audit:   audit,
		Log:     logger,
	})
}
