package domain

import "context"

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// GenerateMonthly creates or refreshes the current month's billing for
	// every billable lease and reconciles cleared post-dated checks.
	GenerateMonthly(ctx context.Context) (GenerateResult, error)
	// ApplyLateFees penalizes open billings past their grace period, at most
	// once per billing period.
	ApplyLateFees(ctx context.Context) (LateFeeResult, error)
}
