package logging

import (
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/modules/logging/handlers"
	"github.com/iota-uz/portal/modules/logging/infrastructure/persistence"
	"github.com/iota-uz/portal/modules/logging/presentation/controllers"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/application"
	pkglogging "github.com/iota-uz/portal/pkg/logging"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

// Register provides *services.EventLogger and *services.LogsService to the
// modules registered after it.
func (m *Module) Register(app application.Application) error {
	conf := app.Config()
	if conf == nil {
		return errors.New("logging module requires configuration")
	}
	if app.Backend().Tables == nil {
		return errors.New("logging module requires a tables backend")
	}

	repo := persistence.NewLogRepository(app.Backend().Tables, conf.EventLog.Table)
	eventLogger := services.NewEventLogger(
		repo,
		pkglogging.StderrLogger(logrus.DebugLevel),
		services.ConfigFromEnvironment(conf),
		services.WithQueue(conf.EventLog.QueueSize),
		services.WithPersistTimeout(conf.EventLog.PersistTimeout),
	)
	app.RegisterServices(
		eventLogger,
		services.NewLogsService(repo, conf.MaxPageSize),
	)
	app.RegisterControllers(
		controllers.NewLogsController(app),
	)
	handlers.RegisterAuthEventHandlers(app.EventPublisher(), eventLogger)
	return nil
}

func (m *Module) Name() string {
	return "logging"
}
