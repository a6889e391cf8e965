package dto

import (
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// OptionResponse представляет вариант ответа для клиента.
// Флаг правильности намеренно отсутствует: грейдинг строго серверный.
type OptionResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту
type QuestionResponse struct {
	ID       uint             `json:"id"`
	QuizID   uint             `json:"quiz_id"`
	Text     string           `json:"text"`
	ImageURL string           `json:"image_url,omitempty"`
	Position int              `json:"position"`
	Options  []OptionResponse `json:"options"`
}

// QuizResponse представляет викторину в формате для ответа клиенту
type QuizResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	CreatorID     uint               `json:"creator_id"`
	TimeLimitMin  int                `json:"time_limit_min"`
	IsPremium     bool               `json:"is_premium"`
	IsHidden      bool               `json:"is_hidden"`
	QuestionCount int                `json:"question_count"`
	AttemptCount  int                `json:"attempt_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PaginatedQuizResponse представляет пагинированный каталог викторин
type PaginatedQuizResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := make([]OptionResponse, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionResponse{
			ID:       opt.ID,
			Text:     opt.Text,
			Position: opt.Position,
		}
	}
	return QuestionResponse{
		ID:       q.ID,
		QuizID:   q.QuizID,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		Position: q.Position,
		Options:  options,
	}
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz, includeQuestions bool) *QuizResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if includeQuestions {
		questionsDTO = make([]QuestionResponse, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsDTO[i] = NewQuestionResponse(&quiz.Questions[i])
		}
	}

	return &QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		CreatorID:     quiz.CreatorID,
		TimeLimitMin:  quiz.TimeLimitMin,
		IsPremium:     quiz.IsPremium,
		IsHidden:      quiz.IsHidden,
		QuestionCount: quiz.QuestionCount,
		AttemptCount:  quiz.AttemptCount,
		Questions:     questionsDTO,
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
}

// NewPaginatedQuizResponse создает DTO для пагинированного каталога
func NewPaginatedQuizResponse(quizzes []entity.Quiz, total int64, page, perPage int) *PaginatedQuizResponse {
	list := make([]*QuizResponse, len(quizzes))
	for i := range quizzes {
		list[i] = NewQuizResponse(&quizzes[i], false)
	}
	return &PaginatedQuizResponse{
		Quizzes: list,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
