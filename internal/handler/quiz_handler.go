package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	"github.com/yourusername/quizdeck-api/internal/handler/dto"
	"github.com/yourusername/quizdeck-api/internal/middleware"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// QuizRequest представляет запрос на создание или обновление викторины
type QuizRequest struct {
	Title        string `json:"title" binding:"required,min=3,max=100"`
	Description  string `json:"description" binding:"omitempty,max=500"`
	TimeLimitMin int    `json:"time_limit_min" binding:"omitempty,min=0,max=1440"`
	IsPremium    bool   `json:"is_premium"`
	IsHidden     bool   `json:"is_hidden"`
}

// CreateQuiz обрабатывает запрос на создание викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(middleware.CurrentUserID(c), service.QuizInput{
		Title:        req.Title,
		Description:  req.Description,
		TimeLimitMin: req.TimeLimitMin,
		IsPremium:    req.IsPremium,
		IsHidden:     req.IsHidden,
	})
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, false))
}

// GetQuiz возвращает информацию о викторине
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuiz(quizID, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, false))
}

// GetQuizWithQuestions возвращает викторину с вопросами (без флагов правильности)
func (h *QuizHandler) GetQuizWithQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuizWithQuestions(quizID, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// ListQuizzes возвращает каталог викторин с пагинацией и фильтрацией
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, perPage := parsePagination(c)

	filters := repository.QuizFilters{
		Search: c.Query("search"),
	}

	if premiumStr := c.Query("premium"); premiumStr != "" {
		premium := premiumStr == "true"
		filters.Premium = &premium
	}

	// Скрытые викторины видны в каталоге только администратору
	if c.Query("include_hidden") == "true" && middleware.IsAdmin(c) {
		filters.IncludeHidden = true
	}

	quizzes, total, err := h.quizService.ListQuizzes(filters, perPage, (page-1)*perPage)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedQuizResponse(quizzes, total, page, perPage))
}

// UpdateQuiz обновляет информацию о викторине
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.UpdateQuiz(quizID, middleware.CurrentUserID(c), middleware.IsAdmin(c), service.QuizInput{
		Title:        req.Title,
		Description:  req.Description,
		TimeLimitMin: req.TimeLimitMin,
		IsPremium:    req.IsPremium,
		IsHidden:     req.IsHidden,
	})
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, false))
}

// DeleteQuiz удаляет викторину
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.quizService.DeleteQuiz(quizID, middleware.CurrentUserID(c), middleware.IsAdmin(c)); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddQuestionsRequest представляет запрос на добавление вопросов
type AddQuestionsRequest struct {
	Questions []struct {
		Text     string `json:"text" binding:"required,min=3,max=500"`
		ImageURL string `json:"image_url,omitempty"`
		Options  []struct {
			Text      string `json:"text" binding:"required,min=1,max=255"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"options" binding:"required,min=2,max=6"`
	} `json:"questions" binding:"required,min=1"`
}

// AddQuestions добавляет вопросы к викторине
func (h *QuizHandler) AddQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]service.QuestionInput, 0, len(req.Questions))
	for _, q := range req.Questions {
		options := make([]service.OptionInput, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, service.OptionInput{Text: opt.Text, IsCorrect: opt.IsCorrect})
		}
		inputs = append(inputs, service.QuestionInput{
			Text:     q.Text,
			ImageURL: q.ImageURL,
			Options:  options,
		})
	}

	questions, err := h.quizService.AddQuestions(quizID, middleware.CurrentUserID(c), middleware.IsAdmin(c), inputs)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	response := make([]dto.QuestionResponse, len(questions))
	for i := range questions {
		response[i] = dto.NewQuestionResponse(&questions[i])
	}

	c.JSON(http.StatusCreated, gin.H{
		"questions": response,
		"total":     len(response),
	})
}

// DeleteQuestion удаляет вопрос викторины
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	questionID := c.MustGet("questionID").(uint)

	err := h.quizService.DeleteQuestion(quizID, questionID, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleQuizError обрабатывает ошибки от сервиса викторин и отправляет соответствующий HTTP ответ
func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
