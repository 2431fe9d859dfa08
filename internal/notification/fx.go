package notification

import (
	"github.com/smallbiznis/rentflow/internal/notification/push"
	"github.com/smallbiznis/rentflow/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(push.NewFromConfig),
	fx.Provide(service.NewService),
)
