package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewHTTPServer(app application.Application, allowedOrigins []string, notFoundHandler http.Handler) *HTTPServer {
	return &HTTPServer{
		Controllers:     app.Controllers(),
		Middlewares:     app.Middleware(),
		AllowedOrigins:  allowedOrigins,
		NotFoundHandler: notFoundHandler,
	}
}

type HTTPServer struct {
	Controllers     []application.Controller
	Middlewares     []mux.MiddlewareFunc
	AllowedOrigins  []string
	NotFoundHandler http.Handler
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}

	if s.NotFoundHandler != nil {
		notFoundHandler := s.NotFoundHandler
		for i := len(s.Middlewares) - 1; i >= 0; i-- {
			notFoundHandler = s.Middlewares[i](notFoundHandler)
		}
		r.NotFoundHandler = notFoundHandler
	}
	return r
}

func (s *HTTPServer) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(gziphandler.GzipHandler(s.Router()))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context, socketAddress string) error {
	srv := &http.Server{
		Addr:              socketAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
