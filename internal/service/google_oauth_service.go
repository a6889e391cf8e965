package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/quizdeck-api/internal/config"
	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

const googleProvider = "google"

// GoogleExchangeInput содержит данные для входа через Google
type GoogleExchangeInput struct {
	IDToken  string
	DeviceID string
}

// GoogleAuthResult содержит результат федеративного входа
type GoogleAuthResult struct {
	Auth         *AuthResponse
	User         *entity.User
	LinkRequired bool
}

// GoogleOAuthService проверяет Google ID токены и связывает внешние identity
// с локальными аккаунтами. Публичные ключи Google кешируются с учетом
// Cache-Control заголовка JWKS-эндпоинта.
type GoogleOAuthService struct {
	userRepo     repository.UserRepository
	identityRepo repository.UserIdentityRepository
	authService  *AuthService
	cfg          config.GoogleOAuthConfig
	httpClient   *http.Client
	jwksMu       sync.RWMutex
	jwksKeys     map[string]*rsa.PublicKey
	jwksExpiry   time.Time
}

// NewGoogleOAuthService создает новый сервис федеративного входа
func NewGoogleOAuthService(
	userRepo repository.UserRepository,
	identityRepo repository.UserIdentityRepository,
	authService *AuthService,
	cfg config.GoogleOAuthConfig,
) (*GoogleOAuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if identityRepo == nil {
		return nil, fmt.Errorf("identity repository is required")
	}
	if authService == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	return &GoogleOAuthService{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		authService:  authService,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Exchange выполняет вход по Google ID токену. Известная identity логинится,
// новая создает пользователя без парольного входа. Совпадение email
// с существующим локальным аккаунтом требует явной привязки (ErrLinkRequired).
func (s *GoogleOAuthService) Exchange(ctx context.Context, input GoogleExchangeInput) (*GoogleAuthResult, error) {
	info, err := s.verifyIDToken(ctx, input.IDToken)
	if err != nil {
		return nil, err
	}

	identity, err := s.identityRepo.GetByProviderSub(googleProvider, info.Sub)
	if err == nil && identity != nil {
		user, userErr := s.userRepo.GetByID(identity.UserID)
		if userErr != nil {
			return nil, userErr
		}
		auth, authErr := s.authService.issueTokens(user, input.DeviceID)
		if authErr != nil {
			return nil, authErr
		}
		return &GoogleAuthResult{Auth: auth, User: user}, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(info.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is missing in google token", ErrGoogleTokenVerificationFailed)
	}

	existing, err := s.userRepo.GetByEmail(email)
	if err == nil && existing != nil {
		return &GoogleAuthResult{User: existing, LinkRequired: true}, ErrLinkRequired
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	username, err := s.generateUniqueUsername(email, info.Sub)
	if err != nil {
		return nil, err
	}
	randomPassword, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:            username,
		Email:               email,
		Password:            randomPassword,
		PasswordAuthEnabled: false,
		ProfilePicture:      info.Picture,
		Role:                entity.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user from google auth: %w", err)
	}

	identity = &entity.UserIdentity{
		UserID:        user.ID,
		Provider:      googleProvider,
		ProviderSub:   info.Sub,
		ProviderEmail: email,
		EmailVerified: info.EmailVerified,
	}
	if err := s.identityRepo.Create(identity); err != nil {
		return nil, fmt.Errorf("failed to create google identity: %w", err)
	}

	auth, err := s.authService.issueTokens(user, input.DeviceID)
	if err != nil {
		return nil, err
	}

	return &GoogleAuthResult{Auth: auth, User: user}, nil
}

// Link привязывает Google identity к текущему пользователю.
// Email Google-аккаунта должен совпадать с email пользователя.
func (s *GoogleOAuthService) Link(ctx context.Context, userID uint, idToken string) error {
	info, err := s.verifyIDToken(ctx, idToken)
	if err != nil {
		return err
	}

	email := normalizeEmail(info.Email)
	if email == "" {
		return fmt.Errorf("%w: email is missing in google token", ErrGoogleTokenVerificationFailed)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if normalizeEmail(user.Email) != email {
		return fmt.Errorf("%w: google account email does not match current user", apperrors.ErrForbidden)
	}

	linked, err := s.identityRepo.GetByProviderSub(googleProvider, info.Sub)
	if err == nil && linked != nil {
		if linked.UserID == userID {
			return nil
		}
		return fmt.Errorf("%w: google identity already linked to another account", apperrors.ErrConflict)
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	_, err = s.identityRepo.GetByUserAndProvider(userID, googleProvider)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	identity := &entity.UserIdentity{
		UserID:        userID,
		Provider:      googleProvider,
		ProviderSub:   info.Sub,
		ProviderEmail: email,
		EmailVerified: info.EmailVerified,
	}
	if err := s.identityRepo.Create(identity); err != nil {
		return fmt.Errorf("failed to create google link: %w", err)
	}

	return nil
}

type parsedGoogleTokenInfo struct {
	Sub           string
	Email         string
	EmailVerified bool
	Picture       string
}

type googleIDTokenClaims struct {
	jwt.RegisteredClaims
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
	Picture       string      `json:"picture"`
}

type googleJWKSet struct {
	Keys []googleJWK `json:"keys"`
}

type googleJWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (s *GoogleOAuthService) verifyIDToken(ctx context.Context, idToken string) (*parsedGoogleTokenInfo, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty id token", ErrGoogleTokenVerificationFailed)
	}

	claims := &googleIDTokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	token, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrGoogleTokenVerificationFailed)
		}
		return s.getGooglePublicKey(ctx, strings.TrimSpace(kid))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleTokenVerificationFailed, err)
	}
	if token == nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrGoogleTokenVerificationFailed)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrGoogleTokenVerificationFailed)
	}
	if claims.Issuer != "accounts.google.com" && claims.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: invalid issuer", ErrGoogleTokenVerificationFailed)
	}
	audMatched := false
	for _, aud := range claims.Audience {
		if aud == s.cfg.ClientID {
			audMatched = true
			break
		}
	}
	if !audMatched {
		return nil, fmt.Errorf("%w: audience mismatch", ErrGoogleTokenVerificationFailed)
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", ErrGoogleTokenVerificationFailed)
	}

	emailVerified, ok := parseGoogleEmailVerifiedClaim(claims.EmailVerified)
	if !ok {
		return nil, fmt.Errorf("%w: invalid email_verified claim", ErrGoogleTokenVerificationFailed)
	}

	return &parsedGoogleTokenInfo{
		Sub:           strings.TrimSpace(claims.Subject),
		Email:         strings.TrimSpace(claims.Email),
		EmailVerified: emailVerified,
		Picture:       strings.TrimSpace(claims.Picture),
	}, nil
}

func parseGoogleEmailVerifiedClaim(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

func (s *GoogleOAuthService) getGooglePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := time.Now()
	s.jwksMu.RLock()
	if key, ok := s.jwksKeys[kid]; ok && now.Before(s.jwksExpiry) {
		s.jwksMu.RUnlock()
		return key, nil
	}
	s.jwksMu.RUnlock()

	if err := s.refreshGoogleJWKS(ctx); err != nil {
		return nil, err
	}

	s.jwksMu.RLock()
	defer s.jwksMu.RUnlock()
	key, ok := s.jwksKeys[kid]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: jwks key not found", ErrGoogleTokenVerificationFailed)
	}
	return key, nil
}

func (s *GoogleOAuthService) refreshGoogleJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v3/certs", nil)
	if err != nil {
		return fmt.Errorf("failed to create google jwks request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch google jwks: %v", ErrGoogleTokenVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: jwks status=%d body=%s", ErrGoogleTokenVerificationFailed, resp.StatusCode, string(body))
	}

	var set googleJWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode google jwks response: %w", err)
	}
	if len(set.Keys) == 0 {
		return fmt.Errorf("%w: empty google jwks response", ErrGoogleTokenVerificationFailed)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, parseErr := parseGoogleRSAPublicKey(jwk)
		if parseErr != nil {
			continue
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable rsa keys in google jwks", ErrGoogleTokenVerificationFailed)
	}

	ttl := parseGoogleJWKSMaxAge(resp.Header.Get("Cache-Control"))

	s.jwksMu.Lock()
	s.jwksKeys = keys
	s.jwksExpiry = time.Now().Add(ttl)
	s.jwksMu.Unlock()
	return nil
}

func parseGoogleRSAPublicKey(jwk googleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jwk modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jwk exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid jwk exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

func parseGoogleJWKSMaxAge(cacheControl string) time.Duration {
	const fallback = 1 * time.Hour
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if !strings.HasPrefix(part, "max-age=") {
			continue
		}
		if seconds, err := strconv.Atoi(strings.TrimPrefix(part, "max-age=")); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// generateUniqueUsername подбирает свободное имя пользователя из локальной части email
func (s *GoogleOAuthService) generateUniqueUsername(email, sub string) (string, error) {
	base := sanitizeUsername(strings.SplitN(email, "@", 2)[0])
	if base == "" {
		base = "user"
	}
	if len(base) > 40 {
		base = base[:40]
	}

	candidate := base
	for i := 0; i < 5; i++ {
		_, err := s.userRepo.GetByUsername(candidate)
		if errors.Is(err, apperrors.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		suffix, sErr := generateRandomHex(3)
		if sErr != nil {
			return "", sErr
		}
		candidate = fmt.Sprintf("%s_%s", base, suffix)
	}
	// Последний шанс: детерминированный суффикс из sub
	if len(sub) > 6 {
		sub = sub[len(sub)-6:]
	}
	return fmt.Sprintf("%s_%s", base, sub), nil
}

func sanitizeUsername(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

func generateRandomHex(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}
