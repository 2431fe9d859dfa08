package lease

import (
	"github.com/smallbiznis/rentflow/internal/lease/repository"
	"github.com/smallbiznis/rentflow/internal/lease/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lease.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
