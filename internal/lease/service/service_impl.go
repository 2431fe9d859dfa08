package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/rentflow/internal/clock"
	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	notificationdomain "github.com/smallbiznis/rentflow/internal/notification/domain"
	obscontext "github.com/smallbiznis/rentflow/internal/observability/context"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"github.com/smallbiznis/rentflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Serialization failures and lock timeouts on the agreement row are retried.
const maxTxAttempts = 3

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock    clock.Clock
	repo     leasedomain.Repository
	notifier notificationdomain.Service
	metrics  *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     leasedomain.Repository
	Notifier notificationdomain.Service

	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) leasedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("lease.service"),

		clock:    p.Clock,
		repo:     p.Repo,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

// MarkSigned implements domain.Service.
func (s *Service) MarkSigned(ctx context.Context, req leasedomain.MarkSignedRequest) (leasedomain.MarkSignedResult, error) {
	var result leasedomain.MarkSignedResult

	envelopeID := strings.TrimSpace(req.EnvelopeID)
	if envelopeID == "" || strings.TrimSpace(req.UserType) == "" {
		return result, leasedomain.ErrMissingFields
	}
	role, err := leasedomain.ParseSignerRole(req.UserType)
	if err != nil {
		return result, err
	}

	lease, err := s.repo.FindByEnvelopeID(ctx, s.db, envelopeID)
	if err != nil {
		return result, err
	}
	if lease == nil {
		return result, leasedomain.ErrLeaseNotFound
	}

	ctx = obscontext.WithActor(ctx, string(role), fmt.Sprintf("%d", lease.UserIDFor(role)))
	ctx = obscontext.WithResource(ctx, "agreement", lease.ID)
	log := obslogger.WithContext(ctx, s.log).With(zap.String("role", string(role)))

	now := s.clock.Now()
	previous := lease.Status
	for attempt := 1; ; attempt++ {
		err = s.markSignedTx(ctx, lease, role, now, &previous, &result)
		if err == nil || attempt >= maxTxAttempts || !db.IsRetryableTxErr(err) {
			break
		}
		log.Debug("lease.mark_signed.retry", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		log.Warn("lease.mark_signed.failed", zap.Error(err))
		return leasedomain.MarkSignedResult{}, err
	}

	result.Message = resultMessage(result)
	if previous != result.Status {
		s.metrics.RecordLeaseTransition(ctx, string(previous), string(result.Status))
	}
	log.Info("lease.mark_signed",
		zap.String("from_status", string(previous)),
		zap.String("status", string(result.Status)),
		zap.Bool("already_signed", result.AlreadySigned),
	)

	if !result.AlreadySigned {
		lease.Status = result.Status
		s.notifyParties(ctx, log, *lease, role, result.Status)
	}
	return result, nil
}

func (s *Service) markSignedTx(
	ctx context.Context,
	lease *leasedomain.Lease,
	role leasedomain.SignerRole,
	now time.Time,
	previous *leasedomain.LeaseStatus,
	result *leasedomain.MarkSignedResult,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The agreement row lock serializes concurrent signers of the same lease.
		lockStart := time.Now()
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, lease.ID)
		obsmetrics.Scheduler().ObserveLockWait(obsmetrics.LockResourceLeaseAgreement, time.Since(lockStart))
		if err != nil {
			return err
		}
		if locked == nil {
			return leasedomain.ErrLeaseNotFound
		}
		*previous = locked.Status

		sig, err := s.repo.FindSignatureForUpdate(ctx, tx, lease.ID, role)
		if err != nil {
			return err
		}
		if sig == nil {
			return leasedomain.ErrSignatureNotFound
		}
		_, changed, err := sig.Status.Sign()
		if err != nil {
			return err
		}
		if changed {
			changed, err = s.repo.MarkSignatureSigned(ctx, tx, lease.ID, role, now)
			if err != nil {
				return err
			}
		}

		signatures, err := s.repo.ListSignatures(ctx, tx, lease.ID)
		if err != nil {
			return err
		}

		target := leasedomain.LeaseStatusPending
		if leasedomain.AllSigned(signatures) {
			target = leasedomain.LeaseStatusActive
		}
		next, err := leasedomain.Transition(locked.Status, target)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, lease.ID, next, now); err != nil {
			return err
		}
		if next == leasedomain.LeaseStatusActive {
			if err := s.repo.UpdateUnitStatus(ctx, tx, lease.UnitID, leasedomain.UnitStatusOccupied); err != nil {
				return err
			}
		}

		*result = leasedomain.MarkSignedResult{
			AgreementID:   lease.ID,
			Status:        next,
			Signatures:    signatures,
			AlreadySigned: !changed,
		}
		return nil
	})
}

func resultMessage(result leasedomain.MarkSignedResult) string {
	switch {
	case result.Status == leasedomain.LeaseStatusActive:
		return "Lease is now active. All parties have signed."
	case result.AlreadySigned:
		return "Signature already recorded. Waiting for the other party to sign."
	default:
		return "Signature recorded. Waiting for the other party to sign."
	}
}
