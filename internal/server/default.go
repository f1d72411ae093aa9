package server

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	coreservices "github.com/iota-uz/portal/modules/core/services"
	"github.com/iota-uz/portal/modules/core/presentation/controllers"
	loghandlers "github.com/iota-uz/portal/modules/logging/handlers"
	logservices "github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/configuration"
	"github.com/iota-uz/portal/pkg/constants"
	"github.com/iota-uz/portal/pkg/middleware"
	"github.com/iota-uz/portal/pkg/routing"
	"github.com/iota-uz/portal/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
}

// Exclusions builds the session bypass rules from the configuration.
func Exclusions(conf *configuration.Configuration) (*routing.Exclusions, error) {
	exclusions := routing.DefaultExclusions()
	if conf.EventLog.ExclusionsPath != "" {
		loaded, err := routing.LoadExclusions(conf.EventLog.ExclusionsPath)
		if err != nil {
			return nil, err
		}
		exclusions = loaded
	}
	return exclusions.With(conf.ExcludedPathPrefixes()...), nil
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	// Core middleware stack with tracing capabilities
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.Provide(constants.AppKey, app),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CorsOrigins()...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	exclusions, err := Exclusions(conf)
	if err != nil {
		return nil, err
	}
	middlewares = append(middlewares,
		middleware.TracedMiddleware("session"),
		loghandlers.SessionMiddleware(
			app.Service(coreservices.SessionService{}).(*coreservices.SessionService),
			app.Service(logservices.EventLogger{}).(*logservices.EventLogger),
			loghandlers.SessionMiddlewareOptions{Exclusions: exclusions},
		),
	)

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	), nil
}
