package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizdeck-api/internal/handler/dto"
	"github.com/yourusername/quizdeck-api/internal/middleware"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/internal/service"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService   *service.AuthService
	googleService *service.GoogleOAuthService // nil, если Google OAuth выключен
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, googleService *service.GoogleOAuthService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		googleService: googleService,
	}
}

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest представляет запрос на вход в систему
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

// RefreshRequest представляет запрос на обновление токенов
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id,omitempty"`
}

// GoogleExchangeRequest представляет запрос федеративного входа через Google
type GoogleExchangeRequest struct {
	IDToken  string `json:"id_token" binding:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

// Register обрабатывает запрос на регистрацию пользователя
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.RegisterUser(service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// Login обрабатывает запрос на вход в систему
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auth, err := h.authService.LoginUser(req.Email, req.Password, req.DeviceID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponseDTO(auth))
}

// Refresh обрабатывает запрос на обновление пары токенов.
// Старый refresh-токен отзывается (ротация).
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auth, err := h.authService.RefreshTokens(req.RefreshToken, req.DeviceID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponseDTO(auth))
}

// Logout отзывает переданный refresh-токен
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.Logout(req.RefreshToken); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Выход выполнен успешно"})
}

// LogoutAll отзывает все refresh-токены пользователя (выход со всех устройств)
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if err := h.authService.LogoutAll(middleware.CurrentUserID(c)); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Выход со всех устройств выполнен успешно"})
}

// Me возвращает профиль текущего пользователя
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.CurrentUserID(c))
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// GoogleExchange обменивает Google ID токен на пару токенов приложения.
// При коллизии email с существующим пользователем возвращает 409 с
// link_required: true, и клиент должен выполнить привязку через /auth/google/link.
func (h *AuthHandler) GoogleExchange(c *gin.Context) {
	if h.googleService == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "вход через Google не включен"})
		return
	}

	var req GoogleExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.googleService.Exchange(c.Request.Context(), service.GoogleExchangeInput{
		IDToken:  req.IDToken,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrLinkRequired) {
			c.JSON(http.StatusConflict, gin.H{
				"error":         err.Error(),
				"link_required": true,
			})
			return
		}
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponseDTO(result.Auth))
}

// GoogleLink привязывает Google identity к уже аутентифицированному пользователю
func (h *AuthHandler) GoogleLink(c *gin.Context) {
	if h.googleService == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "вход через Google не включен"})
		return
	}

	var req GoogleExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.googleService.Link(c.Request.Context(), middleware.CurrentUserID(c), req.IDToken); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "аккаунт Google привязан"})
}

func newAuthResponseDTO(auth *service.AuthResponse) *dto.AuthResponseDTO {
	return &dto.AuthResponseDTO{
		User:         dto.NewUserResponse(auth.User),
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
	}
}

// handleAuthError обрабатывает ошибки от сервиса аутентификации и отправляет соответствующий HTTP ответ
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrExpiredToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, service.ErrGoogleTokenVerificationFailed) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AuthHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
