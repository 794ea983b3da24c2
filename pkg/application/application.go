package application

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type ApplicationOptions struct {
	Pool          *pgxpool.Pool
	Logger        *logrus.Logger
	Bundle        *i18n.Bundle
	Collaborators Collaborators
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:        opts.Pool,
		logger:      opts.Logger,
		bundle:      opts.Bundle,
		collab:      opts.Collaborators.withDefaults(),
		controllers: make(map[string]Controller),
		services:    make(map[reflect.Type]interface{}),
	}
}

type application struct {
	pool        *pgxpool.Pool
	logger      *logrus.Logger
	bundle      *i18n.Bundle
	collab      Collaborators
	services    map[reflect.Type]interface{}
	controllers map[string]Controller
	middleware  []mux.MiddlewareFunc
}

func (app *application) DB() *pgxpool.Pool {
	return app.pool
}

func (app *application) Logger() *logrus.Logger {
	if app.logger == nil {
		return logrus.StandardLogger()
	}
	return app.logger
}

func (app *application) Collaborators() Collaborators {
	return app.collab
}

func (app *application) Bundle() *i18n.Bundle {
	return app.bundle
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

// Controllers are returned ordered by key so route registration is stable.
func (app *application) Controllers() []Controller {
	keys := make([]string, 0, len(app.controllers))
	for k := range app.controllers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	controllers := make([]Controller, 0, len(keys))
	for _, k := range keys {
		controllers = append(controllers, app.controllers[k])
	}
	return controllers
}

func (app *application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

// RegisterServices registers a new service in the application by its type
func (app *application) RegisterServices(services ...interface{}) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type
func (app *application) Service(service interface{}) interface{} {
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

func (app *application) Services() map[reflect.Type]interface{} {
	return app.services
}

// LoadModules registers every module in order, stopping at the first error.
func LoadModules(app Application, modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(app); err != nil {
			return fmt.Errorf("failed to register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
