package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

type hubAuthenticator interface {
	Authenticate(ctx context.Context, hubID, accessKey string) (*models.RegistryEntry, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	SuperAdminKey     string
}

// AuthService provides authentication use cases.
type AuthService struct {
	hubs      hubAuthenticator
	schools   schoolReader
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(hubs hubAuthenticator, schools schoolReader, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{hubs: hubs, schools: schools, validator: validate, logger: logger, config: config}
}

// Login authenticates a portal session and issues a hub-scoped access token.
// Every hub role proves knowledge of the hub access key; facilitators and
// pupils are additionally resolved against the hub's staff and roster.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	claims := &models.HubClaims{Role: req.Role}
	switch req.Role {
	case models.RoleSuperAdmin:
		if s.config.SuperAdminKey == "" {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "super admin access is disabled")
		}
		if subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(s.config.SuperAdminKey)) != 1 {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid super admin key")
		}
	default:
		entry, err := s.hubs.Authenticate(ctx, req.HubID, req.AccessKey)
		if err != nil {
			return nil, err
		}
		claims.HubID = entry.ID
		if err := s.resolveMember(ctx, req, claims); err != nil {
			return nil, err
		}
	}

	token, issuedAt, err := s.generateAccessToken(claims)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("session issued", zap.String("hub_id", claims.HubID), zap.String("role", string(claims.Role)))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		HubID:       claims.HubID,
		Role:        claims.Role,
		Subject:     claims.Subject,
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) resolveMember(ctx context.Context, req models.LoginRequest, claims *models.HubClaims) error {
	if req.Role == models.RoleAdmin {
		return nil
	}
	data, err := loadSchool(ctx, s.schools, claims.HubID)
	if err != nil {
		return err
	}
	switch req.Role {
	case models.RoleFacilitator:
		staff, ok := data.Facilitators.FindByEnrolledID(strings.TrimSpace(req.StaffID))
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidCredentials, "unknown staff id")
		}
		claims.StaffID = staff.EnrolledID
		claims.Subject = staff.TaughtSubject
	case models.RolePupil:
		if findStudent(data.Students, req.StudentID) < 0 {
			return appErrors.Clone(appErrors.ErrInvalidCredentials, "unknown index number")
		}
		claims.StudentID = req.StudentID
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.HubClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.HubClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.HubClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role != models.RoleSuperAdmin && claims.HubID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is not scoped to a hub")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(claims *models.HubClaims) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	subject := string(claims.Role)
	switch {
	case claims.StaffID != "":
		subject = claims.StaffID
	case claims.StudentID > 0:
		subject = strconv.Itoa(claims.StudentID)
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
