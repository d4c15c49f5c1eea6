package jobs

import (
	"context"

	"rentalhub-backend/internal/logger"
)

// ReconcileInventory provisions missing units and resyncs display stock for every product.
func (jr *JobRunner) ReconcileInventory() error {
	return jr.runWithRecovery(JobReconcileInventory, func(ctx context.Context) error {
		reports, err := jr.services.Inventory.ReconcileAll(ctx)
		created, surplus := 0, 0
		for _, r := range reports {
			created += r.Created
			if r.Surplus > 0 {
				surplus++
				logger.Warn("Product has more units than stock",
					"product_id", r.ProductID, "stock", r.Stock, "surplus", r.Surplus)
			}
		}
		jr.metrics.SweepItems(JobReconcileInventory, "processed", len(reports))
		jr.metrics.SweepItems(JobReconcileInventory, "units_created", created)
		logger.Info("Inventory reconciled", "products", len(reports), "units_created", created, "surplus_products", surplus)
		return err
	})
}
