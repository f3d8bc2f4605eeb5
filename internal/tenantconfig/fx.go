package tenantconfig

import (
	"github.com/numeratel/numera/internal/tenantconfig/repository"
	"github.com/numeratel/numera/internal/tenantconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenantconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
