// internal/app/features/transactions/handler.go
//
// Package transactions is the JSON API over the ledger: direct earn and
// redeem commands plus read access to the append-only transaction log.
// Records cannot be edited or removed through it.
package transactions

import (
	"github.com/dalemusser/eatandearn/internal/app/credits"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB      *mongo.Database
	Credits *credits.Service
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, svc *credits.Service, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Credits: svc, Log: logger}
}
