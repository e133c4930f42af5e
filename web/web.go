// Package web serves guice-managed UIs over HTTP.
//
// This package provides middleware that ties HTTP sessions, identified by
// a cookie, to guice sessions, and a router that creates UIs and drives
// navigation.
//
// Example usage:
//
//	injector, _ := collection.Build()
//
//	r := chi.NewRouter()
//	r.Use(web.SessionMiddleware(injector))
//	r.Mount("/", web.Router(injector))
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/berndhopp/guice"
)

// ErrNoSession is returned by SessionFromContext when the request passed
// through no session middleware.
var ErrNoSession = errors.New("no session in context")

type contextKey struct{}

// NewContext returns a copy of the request carrying the given session in
// its context.
func NewContext(r *http.Request, s *guice.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), contextKey{}, s))
}

// SessionFromContext returns the guice session attached to the request
// context by SessionMiddleware.
func SessionFromContext(r *http.Request) (*guice.Session, error) {
	s, _ := r.Context().Value(contextKey{}).(*guice.Session)
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// Config holds the configuration for the session middleware and router.
type Config struct {
	// CookieName is the name of the session cookie.
	// If empty, "guice_session" is used.
	CookieName string

	// ErrorHandler is called when session creation or UI handling fails.
	// If nil, a default handler logs the error and returns 500 Internal
	// Server Error.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// DestroyErrorHandler is called when session destruction fails.
	// If nil, errors are logged using slog.
	DestroyErrorHandler func(error)
}

// Option configures the session middleware and router.
type Option func(*Config)

// WithCookieName sets the name of the session cookie.
func WithCookieName(name string) Option {
	return func(c *Config) {
		c.CookieName = name
	}
}

// WithErrorHandler sets the error handler for session and UI failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithDestroyErrorHandler sets the error handler for session destruction
// failures.
func WithDestroyErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.DestroyErrorHandler = h
	}
}

func defaultConfig() *Config {
	return &Config{
		CookieName: "guice_session",
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("request failed", "path", r.URL.Path, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		DestroyErrorHandler: func(err error) {
			slog.Error("failed to destroy session", "error", err)
		},
	}
}

// SessionMiddleware resolves the guice session for each request from the
// session cookie, creating a session and setting the cookie on first
// contact, and attaches the session to the request context. Retrieve it
// with SessionFromContext.
func SessionMiddleware(injector *guice.Injector, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			manager := injector.Sessions()

			var session *guice.Session
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				session, _ = manager.Lookup(cookie.Value)
			}

			if session == nil {
				var err error
				session, err = manager.Create()
				if err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    session.ID(),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, NewContext(r, session))
		})
	}
}

// Router returns a chi router serving guice UIs:
//
//	GET    /ui/{path}             create or fetch the UI; if the UI
//	                              implements http.Handler it renders the
//	                              response
//	POST   /ui/{path}/navigate/*  navigate the UI's view; the wildcard
//	                              tail is the navigation state, so view
//	                              parameters ("orders/id=42") pass through
//	DELETE /session               destroy the current session
//
// Requests must pass through SessionMiddleware first.
func Router(injector *guice.Injector, opts ...Option) chi.Router {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	r.Get("/ui/{path}", func(w http.ResponseWriter, req *http.Request) {
		session, err := SessionFromContext(req)
		if err != nil {
			cfg.ErrorHandler(w, req, err)
			return
		}

		ui, err := injector.GetOrCreateUI(session, chi.URLParam(req, "path"))
		if err != nil {
			writeUIError(cfg, w, req, err)
			return
		}

		if h, ok := ui.(http.Handler); ok {
			err := session.RunWithUI(ui, func() error {
				h.ServeHTTP(w, req)
				return nil
			})
			if err != nil {
				cfg.ErrorHandler(w, req, err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/ui/{path}/navigate/*", func(w http.ResponseWriter, req *http.Request) {
		session, err := SessionFromContext(req)
		if err != nil {
			cfg.ErrorHandler(w, req, err)
			return
		}

		ui, ok := session.UI(chi.URLParam(req, "path"))
		if !ok {
			http.Error(w, "UI not created", http.StatusNotFound)
			return
		}

		nav, ok := session.Navigator(ui)
		if !ok {
			http.Error(w, "UI not created", http.StatusNotFound)
			return
		}

		if err := nav.NavigateTo(chi.URLParam(req, "*")); err != nil {
			writeNavigationError(cfg, w, req, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	r.Delete("/session", func(w http.ResponseWriter, req *http.Request) {
		session, err := SessionFromContext(req)
		if err != nil {
			cfg.ErrorHandler(w, req, err)
			return
		}

		if err := session.Destroy(); err != nil {
			cfg.DestroyErrorHandler(err)
		}

		http.SetCookie(w, &http.Cookie{
			Name:   cfg.CookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func writeUIError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	var notRegistered guice.UINotRegisteredError
	if errors.As(err, &notRegistered) {
		http.Error(w, notRegistered.Error(), http.StatusNotFound)
		return
	}

	cfg.ErrorHandler(w, r, err)
}

func writeNavigationError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	var notFound guice.ViewNotFoundError
	switch {
	case errors.As(err, &notFound):
		http.Error(w, notFound.Error(), http.StatusNotFound)
	case errors.Is(err, guice.ErrNavigationVetoed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		cfg.ErrorHandler(w, r, err)
	}
}
