// Package naming drives the cluster naming protocol and folds its results back into concepts.
package naming

import (
	"context"

	"ai-concept-engine/internal/entity"
)

// Namer assigns names, quizzability, merges and misfits to one batch of summaries.
type Namer interface {
	NameClusters(ctx context.Context, summaries []entity.ClusterSummary) (*Response, error)
}
