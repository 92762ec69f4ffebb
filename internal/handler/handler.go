package handler

import (
	"github.com/dwarvesf/chain-scanner/internal/checkpoint"
	"github.com/dwarvesf/chain-scanner/internal/handler/health"
	"github.com/dwarvesf/chain-scanner/internal/monitoring"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

type Handler struct {
	HealthHandler health.IHealthHandler
}

func New(logger *logger.Logger, store checkpoint.IStore, chains []health.Chain, jobStatusManager *monitoring.JobStatusManager) *Handler {
	return &Handler{
		HealthHandler: health.New(logger, store, chains, jobStatusManager),
	}
}
