package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	notificationdomain "github.com/smallbiznis/rentflow/internal/notification/domain"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"github.com/smallbiznis/rentflow/internal/providers/email"
	"github.com/smallbiznis/rentflow/pkg/db/option"
	"github.com/smallbiznis/rentflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID            *snowflake.Node
	clock            clock.Clock
	notificationRepo repository.Repository[notificationdomain.Notification]
	pushRepo         repository.Repository[notificationdomain.PushSubscription]
	dispatcher       notificationdomain.Dispatcher
	email            email.Provider
	emailEnabled     bool
	metrics          *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Dispatcher notificationdomain.Dispatcher

	Config  config.Config       `optional:"true"`
	Email   email.Provider      `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("notification.service"),

		genID:            p.GenID,
		clock:            p.Clock,
		notificationRepo: repository.ProvideStore[notificationdomain.Notification](p.DB),
		pushRepo:         repository.ProvideStore[notificationdomain.PushSubscription](p.DB),
		dispatcher:       p.Dispatcher,
		email:            p.Email,
		emailEnabled:     p.Config.Email.Enabled && p.Email != nil,
		metrics:          p.Metrics,
	}
}

// Notify implements domain.Service.
func (s *Service) Notify(ctx context.Context, recipient notificationdomain.Recipient, msg notificationdomain.Message) (notificationdomain.NotifyResult, error) {
	var result notificationdomain.NotifyResult
	if recipient.UserID <= 0 {
		return result, notificationdomain.ErrInvalidRecipient
	}
	if strings.TrimSpace(msg.Title) == "" {
		return result, notificationdomain.ErrEmptyMessage
	}

	notification := notificationdomain.Notification{
		ID:        s.genID.Generate().Int64(),
		UserID:    recipient.UserID,
		UserType:  recipient.UserType,
		Title:     msg.Title,
		Body:      msg.Body,
		Metadata:  datatypes.JSONMap(msg.Metadata),
		CreatedAt: s.clock.Now(),
	}
	if msg.URL != "" {
		url := msg.URL
		notification.URL = &url
	}
	if err := s.notificationRepo.Create(ctx, &notification); err != nil {
		return result, err
	}
	result.NotificationID = notification.ID

	log := obslogger.WithContext(ctx, s.log).With(
		zap.Int64("user_id", recipient.UserID),
		zap.String("user_type", recipient.UserType),
		zap.Int64("notification_id", notification.ID),
	)

	s.dispatchPush(ctx, log, recipient, msg, &result)
	if s.emailEnabled {
		result.Emailed = s.sendEmail(ctx, log, recipient, msg)
	}
	return result, nil
}

func (s *Service) dispatchPush(ctx context.Context, log *zap.Logger, recipient notificationdomain.Recipient, msg notificationdomain.Message, result *notificationdomain.NotifyResult) {
	if s.dispatcher == nil {
		return
	}

	subs, err := s.pushRepo.Find(ctx, &notificationdomain.PushSubscription{UserID: recipient.UserID}, option.WithOrder("id ASC"))
	if err != nil {
		log.Warn("notification.push.list_failed", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(notificationdomain.PushPayload{Title: msg.Title, Body: msg.Body, URL: msg.URL})
	if err != nil {
		log.Warn("notification.push.encode_failed", zap.Error(err))
		return
	}

	for _, sub := range subs {
		status, err := s.dispatcher.Dispatch(ctx, *sub, payload)
		if notificationdomain.IsGone(status) {
			if delErr := s.pushRepo.Delete(ctx, sub.ID); delErr != nil {
				log.Warn("notification.push.prune_failed", zap.Int64("subscription_id", sub.ID), zap.Error(delErr))
				result.Failed++
				continue
			}
			result.Pruned++
			s.metrics.RecordPushPruned(ctx)
			log.Info("notification.push.pruned", zap.Int64("subscription_id", sub.ID), zap.Int("status_code", status))
			continue
		}
		if err != nil {
			result.Failed++
			s.metrics.RecordPushDispatch(ctx, "failed")
			log.Warn("notification.push.failed",
				zap.Int64("subscription_id", sub.ID),
				zap.Int("status_code", status),
				zap.Error(err),
			)
			continue
		}
		result.Delivered++
		s.metrics.RecordPushDispatch(ctx, "delivered")
	}
}

func (s *Service) sendEmail(ctx context.Context, log *zap.Logger, recipient notificationdomain.Recipient, msg notificationdomain.Message) bool {
	var address *string
	if err := s.db.WithContext(ctx).Raw(
		`SELECT email FROM users WHERE user_id = ?`,
		recipient.UserID,
	).Scan(&address).Error; err != nil {
		log.Warn("notification.email.lookup_failed", zap.Error(err))
		return false
	}
	if address == nil || strings.TrimSpace(*address) == "" {
		return false
	}

	err := s.email.SendTemplate(ctx, []string{*address}, "notification", map[string]any{
		"subject": msg.Title,
		"title":   msg.Title,
		"body":    msg.Body,
		"url":     msg.URL,
	})
	if err != nil {
		log.Warn("notification.email.failed", zap.Error(err))
		return false
	}
	return true
}
