// Package server serves the chamber site dynamically. Every request renders
// its page through the same widgets as the static build, with the visitor's
// saved preferences applied.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/discover"
	"github.com/jgxilos/wdd231/internal/join"
	"github.com/jgxilos/wdd231/internal/notify"
	"github.com/jgxilos/wdd231/internal/pagegen"
	"github.com/jgxilos/wdd231/internal/prefs"
)

// VisitorCookie names the cookie holding the visitor id.
const VisitorCookie = "visitor"

const shutdownTimeout = 10 * time.Second

// Scoper hands out the preference store of one visitor.
type Scoper interface {
	Scope(visitor string) prefs.Store
}

// Options configures a Server.
type Options struct {
	Addr          string
	Site          *pagegen.Site
	Prefs         Scoper
	Sender        notify.Sender
	OfficeEmail   string
	CSRFKey       []byte
	SecureCookies bool
	Logger        *zap.Logger
}

// Server is the dynamic chamber site.
type Server struct {
	opts   Options
	logger *zap.Logger
	router chi.Router
}

type visitorKey struct{}

// New builds the router. A missing CSRF key is replaced by a random one,
// which invalidates open forms on restart.
func New(opts Options) (*Server, error) {
	if opts.Site == nil {
		return nil, errors.New("server: site is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryScopes()
	}
	if opts.Sender == nil {
		opts.Sender = notify.NewNoopSender(opts.Logger)
	}
	if len(opts.CSRFKey) == 0 {
		opts.CSRFKey = securecookie.GenerateRandomKey(32)
		if opts.CSRFKey == nil {
			return nil, errors.New("server: failed to generate CSRF key")
		}
		opts.Logger.Warn("no CSRF key configured, using a random key")
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	src := s.opts.Site.SourceDir
	for _, dir := range []string{"static", "assets", "data"} {
		prefix := "/" + dir + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Join(src, dir)))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.identify)
		r.Get("/", s.handleHome)
		r.Get("/directory", s.handleDirectory)
		r.Post("/directory/view", s.handleSetView)
		r.Get("/discover", s.handleDiscover)
		r.Get("/thankyou", s.handleThankYou)
		r.Post("/theme", s.handleTheme)

		r.Group(func(r chi.Router) {
			r.Use(plaintext)
			r.Use(csrf.Protect(s.opts.CSRFKey,
				csrf.Secure(s.opts.SecureCookies),
				csrf.Path("/"),
				csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
			))
			r.Get("/join", s.handleJoin)
			r.Post("/join", s.handleSubmit)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// identify makes sure the visitor carries an id cookie.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(VisitorCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				Secure:   s.opts.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey{}, id)))
	})
}

// plaintext marks non-TLS requests so the CSRF origin checks accept http.
func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("csrf check failed", zap.Error(csrf.FailureReason(r)))
	http.Error(w, "Forbidden - CSRF token invalid", http.StatusForbidden)
}

func (s *Server) prefsFor(r *http.Request) *prefs.Preferences {
	id, _ := r.Context().Value(visitorKey{}).(string)
	return prefs.New(s.opts.Prefs.Scope(id), s.logger)
}

// render buffers the page so a failure can still become a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, ps pagegen.PageSpec, p *prefs.Preferences) {
	opts := pagegen.RenderOptions{Theme: p.Theme()}
	if ps.Template == "join.html" {
		opts.CSRFField = csrf.TemplateField(r)
	}
	var buf bytes.Buffer
	if err := s.opts.Site.RenderPage(r.Context(), &buf, ps, opts); err != nil {
		s.logger.Error("failed to render page", zap.String("template", ps.Template), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	p.AddVisitedPage(ps.Output)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.opts.Site.Home(s.opts.Site.Members), s.prefsFor(r))
}

func (s *Server) viewMode(p *prefs.Preferences) directory.Mode {
	if mode, err := directory.ParseMode(p.ViewMode()); err == nil {
		return mode
	}
	if mode, err := directory.ParseMode(string(s.opts.Site.DefaultView)); err == nil {
		return mode
	}
	return directory.ModeGrid
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	p := s.prefsFor(r)
	s.render(w, r, http.StatusOK, s.opts.Site.Directory(s.opts.Site.Members, s.viewMode(p)), p)
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	mode, err := directory.ParseMode(r.FormValue("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.prefsFor(r).SetViewMode(string(mode))
	http.Redirect(w, r, "/directory", http.StatusSeeOther)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	p := s.prefsFor(r)
	now := s.opts.Site.Clock()
	last, seen := p.LastVisit()
	msg := discover.VisitorMessage(last, seen, now)
	p.TouchLastVisit(now)
	s.render(w, r, http.StatusOK, s.opts.Site.Discover(msg), p)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.opts.Site.Join(nil, nil), s.prefsFor(r))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	now := s.opts.Site.Clock()
	app := join.FromQuery(r.PostForm)
	if app.Timestamp == "" {
		app.Timestamp = now.UTC().Format(join.TimestampLayout)
	}
	if err := app.Validate(now); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, s.opts.Site.Join(&app, join.FieldErrors(err)), s.prefsFor(r))
		return
	}

	if s.opts.OfficeEmail != "" {
		if err := join.Notify(r.Context(), s.opts.Sender, app, s.opts.OfficeEmail); err != nil {
			s.logger.Error("application notification failed",
				zap.String("organization", app.Organization), zap.Error(err))
		}
	}
	http.Redirect(w, r, "/thankyou?"+app.Query().Encode(), http.StatusSeeOther)
}

func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.opts.Site.ThankYou(join.FromQuery(r.URL.Query())), s.prefsFor(r))
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	s.prefsFor(r).ToggleTheme()
	http.Redirect(w, r, backTo(r.Referer()), http.StatusSeeOther)
}

// backTo keeps only the path of a referer so redirects stay on this site.
func backTo(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	back := url.URL{Path: u.Path, RawQuery: u.RawQuery}
	return back.String()
}
