package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "invalid_transition",
			err:  fmt.Errorf("billing 501: %w", billingdomain.ErrInvalidTransition),
			want: SchedulerJobReasonInvalidTransition,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "rentflow",
		Environment: "test",
	})

	metrics.AddBatchProcessed("generate_billing", "leases", 3)
	metrics.AddBatchProcessed("generate_billing", "leases", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("generate_billing", "leases"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestIncBillingTransitionUsesPrecomputedCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{ServiceName: "rentflow", Environment: "test"})

	metrics.IncBillingTransition("unpaid", "overdue")
	metrics.IncBillingTransition("unpaid", "overdue")
	metrics.IncBillingTransition("paid", "finalized")

	if got := testutil.ToFloat64(metrics.billingTransitions.WithLabelValues("unpaid", "overdue")); got != 2 {
		t.Fatalf("expected 2 unpaid->overdue transitions, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.billingTransitions.WithLabelValues("paid", "finalized")); got != 1 {
		t.Fatalf("expected 1 paid->finalized transition, got %v", got)
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: "23505"}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected db, got %q", got)
	}
	if got := ClassifySchedulerErrorType(billingdomain.ErrInvalidTransition); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected business_rule, got %q", got)
	}
	if IsSchedulerErrorRetryable(billingdomain.ErrInvalidTransition) {
		t.Fatalf("business rule errors are not retryable")
	}
}
