package health

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
)

// IHealthHandler defines the interface for health check handlers
type IHealthHandler interface {
	Basic(c *gin.Context)
	Checkpoints(c *gin.Context)
	Providers(c *gin.Context)
	Jobs(c *gin.Context)
}

// IProbe asks every provider of a chain for its block head.
type IProbe interface {
	ProbeBlockHeads(ctx context.Context) []explorer.HeadSample
}

// Chain is what the health checks need to know about one scanned chain.
type Chain struct {
	Name          string
	CheckpointKey string
	Probe         IProbe
}
