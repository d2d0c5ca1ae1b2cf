package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/service"
)

const (
	ctxUID  = "uid"
	ctxRole = "role"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier turns a bearer token into a caller. Verifiers return
// ErrInvalidToken for tokens they do not recognise so the next one can try.
type Verifier interface {
	Verify(ctx context.Context, token string) (service.Caller, error)
}

type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

// Client exposes the Firebase Auth client for user lookups.
func (v *FirebaseVerifier) Client() *auth.Client {
	return v.client
}

// Verify accepts Firebase ID tokens. A custom claim role=admin grants the
// admin role.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (service.Caller, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return service.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if role, _ := t.Claims["role"].(string); role == string(service.RoleAdmin) {
		return service.Admin(t.UID), nil
	}
	return service.User(t.UID), nil
}

// ServiceClaims are carried by HS256 tokens minted for operators and jobs.
type ServiceClaims struct {
	Role service.Role `json:"role"`
	jwt.RegisteredClaims
}

const serviceIssuer = "closet-market"

type ServiceTokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewServiceTokenVerifier(secret string) *ServiceTokenVerifier {
	return &ServiceTokenVerifier{secret: []byte(secret), now: time.Now}
}

func (v *ServiceTokenVerifier) Verify(_ context.Context, token string) (service.Caller, error) {
	claims := &ServiceClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(serviceIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return service.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return service.Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	switch claims.Role {
	case service.RoleAdmin:
		return service.Admin(claims.Subject), nil
	case service.RoleSystem:
		return service.Caller{UID: claims.Subject, Role: service.RoleSystem}, nil
	default:
		return service.Caller{}, fmt.Errorf("%w: role %q not allowed", ErrInvalidToken, claims.Role)
	}
}

// Issue mints a token that Verify accepts.
func (v *ServiceTokenVerifier) Issue(subject string, role service.Role, ttl time.Duration) (string, error) {
	now := v.now()
	claims := ServiceClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serviceIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type AuthMiddleware struct {
	verifiers []Verifier
	logger    *slog.Logger
}

// NewAuthMiddleware tries verifiers in order; nil entries are skipped so
// optional identity providers can be left unconfigured.
func NewAuthMiddleware(logger *slog.Logger, verifiers ...Verifier) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &AuthMiddleware{logger: logger}
	for _, v := range verifiers {
		if v != nil {
			m.verifiers = append(m.verifiers, v)
		}
	}
	return m
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearer(c)
		if !ok {
			return deny(c, http.StatusUnauthorized, "unauthorized")
		}
		caller, err := m.verify(c.Request().Context(), token)
		if err != nil {
			return deny(c, http.StatusUnauthorized, "invalid_token")
		}
		SetCaller(c, caller)
		return next(c)
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearer(c)
		if !ok {
			return next(c)
		}
		caller, err := m.verify(c.Request().Context(), token)
		if err != nil {
			return deny(c, http.StatusUnauthorized, "invalid_token")
		}
		SetCaller(c, caller)
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...service.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := CallerFrom(c)
			for _, r := range roles {
				if caller.Role == r {
					return next(c)
				}
			}
			return deny(c, http.StatusForbidden, "forbidden")
		}
	}
}

func (m *AuthMiddleware) verify(ctx context.Context, token string) (service.Caller, error) {
	var errs []error
	for _, v := range m.verifiers {
		caller, err := v.Verify(ctx, token)
		if err == nil {
			return caller, nil
		}
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err == nil {
		err = errors.New("no token verifier configured")
	}
	m.logger.Debug("token rejected", "error", err)
	return service.Caller{}, err
}

func bearer(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return token, token != ""
}

// SetCaller attaches caller to the request context.
func SetCaller(c echo.Context, caller service.Caller) {
	c.Set(ctxUID, caller.UID)
	c.Set(ctxRole, caller.Role)
}

// CallerFrom returns the anonymous caller when no identity was attached.
func CallerFrom(c echo.Context) service.Caller {
	uid, _ := c.Get(ctxUID).(string)
	role, _ := c.Get(ctxRole).(service.Role)
	if uid == "" {
		return service.Caller{}
	}
	if role == "" {
		role = service.RoleUser
	}
	return service.Caller{UID: uid, Role: role}
}

func deny(c echo.Context, status int, code string) error {
	return c.JSON(status, map[string]map[string]string{
		"error": {"code": code, "message": http.StatusText(status)},
	})
}
