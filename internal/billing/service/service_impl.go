package service

import (
	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID         *snowflake.Node
	clock         clock.Clock
	repo          billingdomain.Repository
	billingConfig *config.BillingConfigHolder
	metrics       *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  billingdomain.Repository

	BillingConfig *config.BillingConfigHolder `optional:"true"`
	Metrics       *obsmetrics.Metrics         `optional:"true"`
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billing.service"),

		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		billingConfig: p.BillingConfig,
		metrics:       p.Metrics,
	}
}
