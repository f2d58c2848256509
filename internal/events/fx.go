package events

import (
	"github.com/smallbiznis/codemart/internal/events/repository"
	"github.com/smallbiznis/codemart/internal/events/service"
	"go.uber.org/fx"
)

var Module = fx.Module("events.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewOutbox),
	fx.Provide(service.NewLogNotifier),
	fx.Provide(service.NewDispatcher),
)
