// Package auth validates bearer tokens against the identity service.
// Two token shapes exist: robot tokens ("<id>|<secret>") checked purely
// remotely, and user JWTs verified locally with the shared HMAC secret
// before the remote confirmation.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v4"
)

// ErrNoToken is returned when the bearer token is missing
var ErrNoToken = errors.New("no token provided")

// ErrInvalidToken is returned when the token fails verification
var ErrInvalidToken = errors.New("invalid token")

// Identity is an authenticated player
type Identity struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsRobot bool   `json:"isRobot"`
	Points  int    `json:"points"`
}

// Verifier resolves bearer tokens to identities
type Verifier struct {
	secret        []byte
	userCheckURL  string
	robotCheckURL string
	client        *http.Client
}

// NewVerifier returns a Verifier using the shared JWT secret and the
// identity service endpoints
func NewVerifier(secret, userCheckURL, robotCheckURL string) *Verifier {
	return &Verifier{
		secret:        []byte(secret),
		userCheckURL:  userCheckURL,
		robotCheckURL: robotCheckURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Verify resolves the token to an identity
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	if isRobotToken(token) {
		return v.verifyRobot(ctx, token)
	}

	return v.verifyUser(ctx, token)
}

// isRobotToken reports whether the token has the "<id>|<secret>" shape
func isRobotToken(token string) bool {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return false
	}

	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (v *Verifier) verifyUser(ctx context.Context, token string) (*Identity, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrInvalidToken
	}

	_, err := jwtgo.Parse(token, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, errors.New("expected HS256 signing method")
		}

		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not parse token: %w", err)
	}

	entity, err := v.remoteCheck(ctx, v.userCheckURL, token)
	if err != nil {
		return nil, err
	}

	return entity.identity(false)
}

func (v *Verifier) verifyRobot(ctx context.Context, token string) (*Identity, error) {
	entity, err := v.remoteCheck(ctx, v.robotCheckURL, token)
	if err != nil {
		return nil, err
	}

	return entity.identity(true)
}

// apiEntity is a user or robot record from the identity service.
// Identifiers may arrive as strings or numbers.
type apiEntity struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	Nickname string      `json:"nickname"`
	Points   int         `json:"points"`
}

type checkResponse struct {
	Status string     `json:"status"`
	Error  string     `json:"error"`
	User   *apiEntity `json:"user"`
	Robot  *apiEntity `json:"robot"`
}

func (e *apiEntity) identity(isRobot bool) (*Identity, error) {
	id, err := e.ID.Int64()
	if err != nil {
		return nil, fmt.Errorf("unexpected identifier %q: %w", e.ID.String(), err)
	}

	name := e.Name
	if name == "" {
		name = e.Nickname
	}

	return &Identity{
		ID:      id,
		Name:    name,
		IsRobot: isRobot,
		Points:  e.Points,
	}, nil
}

func (v *Verifier) remoteCheck(ctx context.Context, url, token string) (*apiEntity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned %d", res.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("could not decode identity response: %w", err)
	}

	if body.Status != "success" {
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, body.Error)
		}

		return nil, ErrInvalidToken
	}

	entity := body.User
	if entity == nil {
		entity = body.Robot
	}

	if entity == nil {
		return nil, errors.New("identity response missing user")
	}

	return entity, nil
}
