package http

import (
	"net/http"
	"strings"
)

// RouterConfig lists the handlers and middleware mounted by NewRouter. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Booking *BookingHandler
	Help    *HelpHandler
	Admin   *AdminHandler
	Health  http.Handler
	// RequireAdmin guards every /admin route except /admin/sessions.
	RequireAdmin func(http.Handler) http.Handler
	// RateLimit guards the public POST routes.
	RateLimit  func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	admin := optional(cfg.RequireAdmin)
	limited := optional(cfg.RateLimit)

	if cfg.Booking != nil {
		mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Booking.ListSlots(w, r)
		})
		mux.HandleFunc("/slots/dates", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Booking.ListDates(w, r)
		})
		mux.Handle("/bookings", limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Booking.Submit(w, r)
		})))
	}

	if cfg.Help != nil {
		mux.HandleFunc("/faqs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Help.ListFaqs(w, r)
		})
		mux.Handle("/feedback", limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Help.SubmitFeedback(w, r)
		})))
	}

	if cfg.Admin != nil {
		mux.Handle("/admin/sessions", limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.CreateSession(w, r)
		})))
		mux.Handle("/admin/meetings", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.CreateMeeting(w, r)
		})))
		mux.Handle("/admin/meetings/batches", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.RunBatch(w, r)
		})))
		mux.Handle("/admin/meetings/dates/", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			date := strings.TrimPrefix(r.URL.Path, "/admin/meetings/dates/")
			if date == "" || strings.Contains(date, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Admin.CancelDate(w, r, date)
		})))
		mux.Handle("/admin/calendar.ics", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Admin.Calendar(w, r)
		})))
	}

	if cfg.Health != nil {
		mux.Handle("/healthz", cfg.Health)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
