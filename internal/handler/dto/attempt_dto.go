package dto

import (
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// DraftAnswerResponse представляет черновой ответ в ответе клиенту
type DraftAnswerResponse struct {
	QuestionID       uint      `json:"question_id"`
	SelectedOptionID uint      `json:"selected_option_id"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AttemptAnswerResponse представляет финальный оцененный ответ
type AttemptAnswerResponse struct {
	QuestionID       uint `json:"question_id"`
	SelectedOptionID uint `json:"selected_option_id"` // 0 = вопрос без ответа
	IsCorrect        bool `json:"is_correct"`
}

// AttemptResponse представляет попытку в формате для ответа клиенту
type AttemptResponse struct {
	ID             string     `json:"id"`
	UserID         uint       `json:"user_id"`
	QuizID         uint       `json:"quiz_id"`
	Status         string     `json:"status"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	// Абсолютный дедлайн для викторин с лимитом времени
	Deadline *time.Time `json:"deadline,omitempty"`

	// Resumed true, если StartAttempt вернул существующую попытку
	Resumed bool `json:"resumed,omitempty"`

	// Аннотации списка незавершенных попыток
	QuizTitle string   `json:"quiz_title,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`

	DraftAnswers []DraftAnswerResponse   `json:"draft_answers,omitempty"`
	Answers      []AttemptAnswerResponse `json:"answers,omitempty"`
}

// NewAttemptResponse создает DTO попытки. quiz может быть nil,
// тогда дедлайн не вычисляется.
func NewAttemptResponse(attempt *entity.TestAttempt, quiz *entity.Quiz, resumed bool) *AttemptResponse {
	if attempt == nil {
		return nil
	}

	resp := &AttemptResponse{
		ID:             attempt.ID,
		UserID:         attempt.UserID,
		QuizID:         attempt.QuizID,
		Status:         attempt.Status,
		TotalQuestions: attempt.TotalQuestions,
		CorrectAnswers: attempt.CorrectAnswers,
		StartedAt:      attempt.StartedAt,
		CompletedAt:    attempt.CompletedAt,
		Resumed:        resumed,
	}

	if quiz != nil {
		if deadline, ok := quiz.Deadline(attempt.StartedAt); ok {
			resp.Deadline = &deadline
		}
	}

	if len(attempt.DraftAnswers) > 0 {
		resp.DraftAnswers = make([]DraftAnswerResponse, len(attempt.DraftAnswers))
		for i, d := range attempt.DraftAnswers {
			resp.DraftAnswers[i] = DraftAnswerResponse{
				QuestionID:       d.QuestionID,
				SelectedOptionID: d.SelectedOptionID,
				UpdatedAt:        d.UpdatedAt,
			}
		}
	}

	if len(attempt.Answers) > 0 {
		resp.Answers = make([]AttemptAnswerResponse, len(attempt.Answers))
		for i, a := range attempt.Answers {
			resp.Answers[i] = AttemptAnswerResponse{
				QuestionID:       a.QuestionID,
				SelectedOptionID: a.SelectedOptionID,
				IsCorrect:        a.IsCorrect,
			}
		}
	}

	return resp
}

// NewInProgressAttemptResponse создает DTO незавершенной попытки с названием
// викторины и прогрессом (отвечено / всего вопросов)
func NewInProgressAttemptResponse(attempt *entity.TestAttempt, quizTitle string) *AttemptResponse {
	resp := NewAttemptResponse(attempt, nil, false)
	resp.QuizTitle = quizTitle
	progress := attempt.Progress()
	resp.Progress = &progress
	return resp
}

// NewListAttemptResponse создает слайс DTO для списка попыток
func NewListAttemptResponse(attempts []entity.TestAttempt) []*AttemptResponse {
	list := make([]*AttemptResponse, len(attempts))
	for i := range attempts {
		list[i] = NewAttemptResponse(&attempts[i], nil, false)
	}
	return list
}

// PaginatedAttemptResponse представляет пагинированный список попыток
type PaginatedAttemptResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"per_page"`
}

// NewPaginatedAttemptResponse создает DTO для пагинированного списка попыток
func NewPaginatedAttemptResponse(attempts []entity.TestAttempt, total int64, page, perPage int) *PaginatedAttemptResponse {
	return &PaginatedAttemptResponse{
		Attempts: NewListAttemptResponse(attempts),
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}
}
