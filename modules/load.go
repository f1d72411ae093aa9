package modules

import (
	"github.com/iota-uz/portal/modules/core"
	"github.com/iota-uz/portal/modules/logging"
	"github.com/iota-uz/portal/pkg/application"
)

// BuiltInModules are registered in order: core looks up the event logger
// provided by logging.
var BuiltInModules = []application.Module{
	logging.NewModule(),
	core.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
