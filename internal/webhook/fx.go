package webhook

import (
	"github.com/numeratel/numera/internal/webhook/repository"
	"github.com/numeratel/numera/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
