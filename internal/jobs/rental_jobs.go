package jobs

import (
	"context"
)

// AdvanceDueRentals moves delivered orders whose rental period has ended into return_product.
func (jr *JobRunner) AdvanceDueRentals() error {
	return jr.runWithRecovery(JobAdvanceDueRentals, func(ctx context.Context) error {
		res, err := jr.services.Orders.AdvanceDueRentals(ctx, jr.now())
		jr.recordSweep(JobAdvanceDueRentals, res)
		return err
	})
}

// ExpireDeposits marks pending deposits past their payment window as expired.
func (jr *JobRunner) ExpireDeposits() error {
	return jr.runWithRecovery(JobExpireDeposits, func(ctx context.Context) error {
		res, err := jr.services.Deposits.ExpireStaleDeposits(ctx, jr.now())
		jr.recordSweep(JobExpireDeposits, res)
		return err
	})
}
