package application

import (
	"reflect"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Name() string
	Register(app Application) error
}

// Application with a dynamically extendable service registry
type Application interface {
	DB() *pgxpool.Pool
	Bundle() *i18n.Bundle
	Logger() *logrus.Logger
	Collaborators() Collaborators
	Middleware() []mux.MiddlewareFunc
	Controllers() []Controller
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}
