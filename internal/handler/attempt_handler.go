package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quizdeck-api/internal/handler/dto"
	"github.com/yourusername/quizdeck-api/internal/middleware"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/internal/service"
)

// AttemptHandler обрабатывает запросы жизненного цикла попыток
type AttemptHandler struct {
	attemptService *service.AttemptService
	quizService    *service.QuizService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService, quizService *service.QuizService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		quizService:    quizService,
	}
}

// StartAttempt начинает или резюмирует попытку
// POST /api/quizzes/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	userID := middleware.CurrentUserID(c)

	attempt, resumed, err := h.attemptService.StartAttempt(userID, quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	quiz, qerr := h.quizService.GetQuiz(quizID, userID, middleware.IsAdmin(c))
	if qerr != nil {
		log.Printf("[AttemptHandler] Не удалось получить викторину %d для дедлайна: %v", quizID, qerr)
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	c.JSON(status, dto.NewAttemptResponse(attempt, quiz, resumed))
}

// AutosaveRequest представляет запрос автосохранения ответа
type AutosaveRequest struct {
	QuestionID       uint `json:"question_id" binding:"required"`
	SelectedOptionID uint `json:"selected_option_id" binding:"required"`
}

// Autosave сохраняет черновой ответ по одному вопросу
// PUT /api/attempts/:attempt_id/answers
func (h *AttemptHandler) Autosave(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	userID := middleware.CurrentUserID(c)

	var req AutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.Autosave(userID, attemptID, req.QuestionID, req.SelectedOptionID); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitAnswerRequest представляет финальный выбор по одному вопросу
type SubmitAnswerRequest struct {
	QuestionID       uint `json:"question_id" binding:"required"`
	SelectedOptionID uint `json:"selected_option_id" binding:"required"`
}

// SubmitRequest представляет запрос завершения попытки. Тело необязательно:
// answers перекрывают черновики на случай потерянного автосейва.
type SubmitRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" binding:"omitempty,dive"`
}

// Submit завершает попытку и возвращает результат грейдинга
// POST /api/attempts/:attempt_id/submit
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	userID := middleware.CurrentUserID(c)

	var req SubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	final := make([]service.SubmitAnswerInput, len(req.Answers))
	for i, a := range req.Answers {
		final[i] = service.SubmitAnswerInput{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
		}
	}

	attempt, err := h.attemptService.Submit(userID, attemptID, final)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, nil, false))
}

// Abandon бросает попытку без грейдинга
// POST /api/attempts/:attempt_id/abandon
func (h *AttemptHandler) Abandon(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	userID := middleware.CurrentUserID(c)

	if err := h.attemptService.Abandon(userID, attemptID); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAttempt возвращает попытку с черновиками или финальными ответами
// GET /api/attempts/:attempt_id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	userID := middleware.CurrentUserID(c)
	isAdmin := middleware.IsAdmin(c)

	attempt, err := h.attemptService.GetAttempt(userID, isAdmin, attemptID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	// Дедлайн отдаем, если викторина все еще доступна пользователю
	quiz, qerr := h.quizService.GetQuiz(attempt.QuizID, userID, isAdmin)
	if qerr != nil {
		log.Printf("[AttemptHandler] Не удалось получить викторину %d для дедлайна: %v", attempt.QuizID, qerr)
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, quiz, false))
}

// ListInProgress возвращает незавершенные попытки текущего пользователя
// GET /api/attempts
func (h *AttemptHandler) ListInProgress(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	items, err := h.attemptService.ListInProgress(userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	attempts := make([]*dto.AttemptResponse, len(items))
	for i := range items {
		attempts[i] = dto.NewInProgressAttemptResponse(&items[i].Attempt, items[i].QuizTitle)
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

// ListHistory возвращает терминальные попытки текущего пользователя
// GET /api/attempts/history
func (h *AttemptHandler) ListHistory(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	page, perPage := parsePagination(c)

	attempts, err := h.attemptService.ListHistory(userID, perPage, (page-1)*perPage)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": dto.NewListAttemptResponse(attempts),
		"page":     page,
		"per_page": perPage,
	})
}

// ListQuizResults возвращает таблицу результатов викторины
// GET /api/quizzes/:id/results
func (h *AttemptHandler) ListQuizResults(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	page, perPage := parsePagination(c)

	attempts, total, err := h.attemptService.ListQuizResults(quizID, perPage, (page-1)*perPage)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedAttemptResponse(attempts, total, page, perPage))
}

// ExportQuizResults экспортирует результаты викторины в CSV или Excel формате
// GET /api/admin/quizzes/:id/results/export?format=csv|xlsx
func (h *AttemptHandler) ExportQuizResults(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	format := c.DefaultQuery("format", "csv")

	rows, err := h.attemptService.ExportQuizResults(quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_%d_results_%s", quizID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *AttemptHandler) exportCSV(c *gin.Context, rows []service.AttemptExportRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Место", "Пользователь", "Статус", "Правильных", "Всего вопросов", "Начата", "Завершена"})

	for _, r := range rows {
		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format(time.RFC3339)
		}
		writer.Write([]string{
			strconv.Itoa(r.Rank),
			sanitizeForExcel(r.Username),
			translateAttemptStatus(r.Status),
			strconv.Itoa(r.CorrectAnswers),
			strconv.Itoa(r.TotalQuestions),
			r.StartedAt.Format(time.RFC3339),
			completedAt,
		})
	}
}

// exportXLSX экспортирует результаты в Excel через StreamWriter
func (h *AttemptHandler) exportXLSX(c *gin.Context, rows []service.AttemptExportRow, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AttemptHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Пользователь", "Статус", "Правильных", "Всего вопросов", "Начата", "Завершена"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range rows {
		rowNum := i + 2
		cell := fmt.Sprintf("A%d", rowNum)

		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format(time.RFC3339)
		}

		row := []interface{}{
			r.Rank,
			sanitizeForExcel(r.Username),
			translateAttemptStatus(r.Status),
			r.CorrectAnswers,
			r.TotalQuestions,
			r.StartedAt.Format(time.RFC3339),
			completedAt,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AttemptHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AttemptHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи Excel в response: %v", err)
	}
}

// translateAttemptStatus переводит статус попытки на русский для выгрузки
func translateAttemptStatus(status string) string {
	switch status {
	case "completed":
		return "Завершена"
	case "late":
		return "С опозданием"
	case "abandoned":
		return "Брошена"
	case "in_progress":
		return "В процессе"
	default:
		return status
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// parsePagination извлекает параметры пагинации из query
func parsePagination(c *gin.Context) (page, perPage int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// handleAttemptError обрабатывает ошибки от сервиса попыток и отправляет соответствующий HTTP ответ
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrPaymentRequired) {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
