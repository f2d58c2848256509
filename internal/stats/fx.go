package stats

import (
	"github.com/smallbiznis/codemart/internal/stats/domain"
	"github.com/smallbiznis/codemart/internal/stats/repository"
	"github.com/smallbiznis/codemart/internal/stats/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stats.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(service.NewCache, fx.As(fx.Self()), fx.As(new(domain.Invalidator)))),
	fx.Provide(service.New),
)
