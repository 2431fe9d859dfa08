package providers

import (
	"github.com/smallbiznis/rentflow/internal/providers/email"
	"github.com/smallbiznis/rentflow/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
