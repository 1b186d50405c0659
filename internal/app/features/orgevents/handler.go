// internal/app/features/orgevents/handler.go
package orgevents

import (
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lets an organization post volunteering events and view its own.
type Handler struct {
	DB    *mongo.Database
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Audit: audit, Log: logger}
}
