package service

import (
	"context"
	"fmt"

	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	notificationdomain "github.com/smallbiznis/rentflow/internal/notification/domain"
	"go.uber.org/zap"
)

// notifyParties runs after commit. Failures are logged and never change the
// outcome of the signing request.
func (s *Service) notifyParties(ctx context.Context, log *zap.Logger, lease leasedomain.Lease, signer leasedomain.SignerRole, status leasedomain.LeaseStatus) {
	if s.notifier == nil {
		return
	}

	url := fmt.Sprintf("/leases/%d", lease.ID)
	unit := lease.UnitName
	if unit == "" {
		unit = "your unit"
	}

	if status == leasedomain.LeaseStatusActive {
		for _, role := range []leasedomain.SignerRole{leasedomain.SignerRoleLandlord, leasedomain.SignerRoleTenant} {
			s.notify(ctx, log, lease, role, notificationdomain.Message{
				Title: "Lease Fully Signed",
				Body:  fmt.Sprintf("The lease for %s has been signed by all parties and is now active.", unit),
				URL:   url,
				Metadata: map[string]any{
					"agreement_id": lease.ID,
					"event":        "lease_activated",
				},
			})
		}
		return
	}

	counterpart := signer.Counterpart()
	s.notify(ctx, log, lease, counterpart, notificationdomain.Message{
		Title: "Lease Signature Update",
		Body:  fmt.Sprintf("The %s has signed the lease for %s. Your signature is needed to activate it.", signer, unit),
		URL:   url,
		Metadata: map[string]any{
			"agreement_id": lease.ID,
			"event":        "lease_cosigned",
			"signed_by":    string(signer),
		},
	})
}

func (s *Service) notify(ctx context.Context, log *zap.Logger, lease leasedomain.Lease, role leasedomain.SignerRole, msg notificationdomain.Message) {
	userID := lease.UserIDFor(role)
	if userID == 0 {
		log.Warn("lease.notify.missing_recipient", zap.String("recipient_role", string(role)))
		return
	}
	if _, err := s.notifier.Notify(ctx, notificationdomain.Recipient{UserID: userID, UserType: string(role)}, msg); err != nil {
		log.Warn("lease.notify.failed",
			zap.String("recipient_role", string(role)),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
