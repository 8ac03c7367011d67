package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/rs/cors"
)

// HealthFunc reports readiness; nil means healthy.
type HealthFunc func(r *http.Request) error

// NewRouter wires the routes, CORS and request logging.
func NewRouter(h *Handler, secret []byte, allowedOrigins []string, health HealthFunc, log logging.Logger) http.Handler {
	mux := http.NewServeMux()

	// ---------- PUBLIC ROUTES ----------
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, "UNAVAILABLE")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.HandleFunc("GET /api/files/share/{token}", h.DownloadShare)

	// ---------- PROTECTED ROUTES ----------
	protect := func(fn http.HandlerFunc) http.Handler {
		return AuthMiddleware(secret, fn)
	}
	mux.Handle("POST /api/files/upload", protect(h.Upload))
	mux.Handle("GET /api/files/my", protect(h.ListFiles))
	mux.Handle("POST /api/files/share", protect(h.CreateShare))
	mux.Handle("GET /api/files/shares", protect(h.ListShares))

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)
	handler = Logger(log, handler)
	return handler
}
