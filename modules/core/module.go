package core

import (
	"github.com/go-faster/errors"

	"github.com/iota-uz/portal/modules/core/infrastructure/persistence"
	"github.com/iota-uz/portal/modules/core/presentation/controllers"
	"github.com/iota-uz/portal/modules/core/services"
	logservices "github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

// Register expects the logging module to be registered first.
func (m *Module) Register(app application.Application) error {
	conf := app.Config()
	if conf == nil {
		return errors.New("core module requires configuration")
	}
	client := app.Backend()
	if client.Auth == nil || client.Tables == nil || client.Storage == nil {
		return errors.New("core module requires auth, tables and storage backends")
	}
	eventLogger := app.Service(logservices.EventLogger{}).(*logservices.EventLogger)

	profileRepo := persistence.NewProfileRepository(client.Tables)
	profileService := services.NewProfileService(profileRepo, eventLogger, nil)
	app.RegisterServices(
		services.NewSessionService(client.Auth, services.SessionOptionsFromConfig(conf)),
		services.NewAuthService(client.Auth, app.EventPublisher()),
		profileService,
		services.NewAvatarService(client.Storage, profileService, eventLogger, conf.Backend.AvatarBucket, conf.MaxUploadSize),
	)

	authRPM := 0
	if conf.RateLimit.Enabled {
		authRPM = conf.RateLimit.AuthRPM
	}
	app.RegisterControllers(
		controllers.NewHealthController(),
		controllers.NewLoginController(app, controllers.LoginControllerOptions{
			LoginPath: conf.LoginPath,
			AuthRPM:   authRPM,
		}),
		controllers.NewAccountController(app, conf.MaxUploadSize),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
