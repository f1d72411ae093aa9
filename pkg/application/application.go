// Package application holds the registries modules use to contribute
// services, controllers and middleware to the server.
package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/configuration"
	"github.com/iota-uz/portal/pkg/eventbus"
)

type Controller interface {
	Key() string
	Register(r *mux.Router)
}

type Module interface {
	Register(app Application) error
	Name() string
}

type Application interface {
	Config() *configuration.Configuration
	Logger() *logrus.Logger
	Backend() backend.Client
	EventPublisher() eventbus.EventBus
	Controllers() []Controller
	RegisterControllers(controllers ...Controller)
	Middleware() []mux.MiddlewareFunc
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...any)
	// Service looks up a registered service by the type of the given zero value.
	Service(service any) any
	Services() map[reflect.Type]any
}

type ApplicationOptions struct {
	Config   *configuration.Configuration
	Logger   *logrus.Logger
	Backend  backend.Client
	EventBus eventbus.EventBus
}

func New(opts *ApplicationOptions) Application {
	bus := opts.EventBus
	if bus == nil {
		bus = eventbus.NewEventPublisher(opts.Logger)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &application{
		config:   opts.Config,
		logger:   logger,
		backend:  opts.Backend,
		bus:      bus,
		services: make(map[reflect.Type]any),
	}
}

type application struct {
	config      *configuration.Configuration
	logger      *logrus.Logger
	backend     backend.Client
	bus         eventbus.EventBus
	controllers []Controller
	middleware  []mux.MiddlewareFunc
	services    map[reflect.Type]any
}

func (app *application) Config() *configuration.Configuration {
	return app.config
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

func (app *application) Backend() backend.Client {
	return app.backend
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.bus
}

func (app *application) Controllers() []Controller {
	return app.controllers
}

func (app *application) RegisterControllers(controllers ...Controller) {
	app.controllers = append(app.controllers, controllers...)
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

func (app *application) RegisterServices(services ...any) {
	for _, service := range services {
		app.services[reflect.TypeOf(service).Elem()] = service
	}
}

func (app *application) Service(service any) any {
	serviceType := reflect.TypeOf(service)
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}
	svc, ok := app.services[serviceType]
	if !ok {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

func (app *application) Services() map[reflect.Type]any {
	return app.services
}
