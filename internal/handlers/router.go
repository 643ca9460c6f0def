package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/authd/internal/handlers/middleware"
	"github.com/nkiryanov/authd/internal/handlers/render"
	"github.com/nkiryanov/authd/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService AuthService,
	passwordChanger passwordChanger,
	logger logger.Logger,
) http.Handler {
	authHandler := NewAuth(authService, logger)
	userHandler := NewUser(passwordChanger, logger)

	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /register/", authHandler.register)
	api.HandleFunc("POST /login/", authHandler.login)
	api.HandleFunc("POST /refresh_token/", authHandler.refresh)
	api.Handle("POST /update_password/", withAuth(userHandler.updatePassword))
	api.Handle("GET /me", withAuth(userHandler.me))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.HandleFunc("GET /health", handleHealth)

	return chain(root,
		middleware.LoggerMiddleware(logger),
	)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}

	render.JSON(w, response{Status: "healthy", Timestamp: time.Now().UTC()})
}
