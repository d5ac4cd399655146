package reconcile

import (
	"go.uber.org/zap"
)

// LogPlan prints a reconciliation plan using the logger.
func LogPlan(l *zap.Logger, plan *Plan) {
	if plan == nil {
		return
	}
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.String("cycle_id", plan.CycleID),
		zap.Int("configurations", s.Configurations),
		zap.Int("failed_configurations", s.FailedConfigurations),
		zap.Int("features", s.Features),
		zap.Int("records", s.Records),
		zap.Int("clamped", s.Clamped),
		zap.Bool("submitted", plan.Submitted),
	)

	for _, o := range plan.Outcomes {
		if o.OK() {
			continue
		}
		l.Warn("Configuration failed", zap.String("configuration", o.Name), zap.String("error", o.Error))
	}

	if plan.Report != nil {
		for _, f := range plan.Report.Features {
			l.Info("Feature",
				zap.String("product", f.Product),
				zap.String("feature", f.Feature),
				zap.Int("total", f.Total),
				zap.Int("used", f.Used),
				zap.Int("booked", f.Booked),
				zap.Int("reserved", f.Reserved),
				zap.Int("available", f.Available),
			)
		}
	}

	if len(plan.Retired) > 0 {
		l.Info("Retired bookings",
			zap.Int("confirmed", s.Confirmed),
			zap.Int("expired", s.Expired),
			zap.Int("orphaned", s.Orphaned),
		)

		// Show a sample (max 5)
		maxShow := 5
		if len(plan.Retired) < maxShow {
			maxShow = len(plan.Retired)
		}
		for i := 0; i < maxShow; i++ {
			r := plan.Retired[i]
			l.Info("Retired booking",
				zap.Int64("booking_id", r.Booking.ID),
				zap.String("job_id", r.Booking.JobID),
				zap.String("feature", r.Feature),
				zap.String("reason", string(r.Reason)),
			)
		}
		if len(plan.Retired) > maxShow {
			l.Info("Additional retired bookings not shown", zap.Int("count", len(plan.Retired)-maxShow))
		}
	}
}
