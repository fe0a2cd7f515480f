// Package mux handles HTTP routing: the health endpoint and the
// authenticated websocket upgrade.
package mux

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"badugi-server/internal/auth"
	"badugi-server/internal/config"
	"badugi-server/pkg/game"
	"badugi-server/pkg/room"

	gmux "github.com/gorilla/mux"
)

type ctxKey int

const ctxIdentityKey ctxKey = iota

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	version  string
	verifier *auth.Verifier
	gateway  *room.Gateway
}

// NewMux returns a new HTTP mux configured from the singleton config
func NewMux(version string) *Mux {
	cfg := config.Instance()

	verifier := auth.NewVerifier(cfg.JWT.Secret, cfg.Auth.UserCheckURL, cfg.Auth.RobotCheckURL)
	gateway := room.NewGateway(game.Options{
		TurnTime:     time.Duration(cfg.Game.TurnTimeLimit) * time.Second,
		DefaultChips: cfg.Game.DefaultChips,
	})

	return newMux(version, verifier, gateway)
}

func newMux(version string, verifier *auth.Verifier, gateway *room.Gateway) *Mux {
	this := &Mux{
		Router:   gmux.NewRouter(),
		version:  version,
		verifier: verifier,
		gateway:  gateway,
	}

	// unauthorized endpoints
	this.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())

	// requires bearer authorization
	authRouter := this.NewRoute().Subrouter()
	authRouter.Use(this.authMiddleware)
	authRouter.Methods(http.MethodGet).Path("/ws").Handler(this.getWS())

	return this
}

func (m *Mux) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("access_token")
		if token == "" {
			authHeader := strings.Split(r.Header.Get("Authorization"), " ")
			if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, nil)
				return
			}

			token = authHeader[1]
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxIdentityKey, identity)
		w.Header().Set("Badugi-UserID", strconv.FormatInt(identity.ID, 10))
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}
