package transaction

import (
	"github.com/numeratel/numera/internal/transaction/repository"
	"github.com/numeratel/numera/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
