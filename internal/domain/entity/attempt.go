package entity

import (
	"time"
)

// Статусы попытки прохождения теста.
// Начальный статус всегда in_progress; completed, late и abandoned — терминальные,
// из них нет переходов.
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusAbandoned  = "abandoned"
	AttemptStatusLate       = "late"
)

// TestAttempt представляет одну попытку пользователя пройти викторину.
// ID — непрозрачный UUID. Инвариант: не более одной in_progress попытки
// на пару (user, quiz) — обеспечивается partial unique index в БД.
type TestAttempt struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	QuizID uint   `gorm:"not null;index" json:"quiz_id"`
	Status string `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	// Снимок количества вопросов на момент старта. Не пересчитывается,
	// чтобы исторические попытки оставались сравнимыми после правок викторины.
	TotalQuestions int `gorm:"not null;default:0" json:"total_questions"`

	// Считается сервером при Submit; 0 пока попытка в процессе.
	CorrectAnswers int `gorm:"not null;default:0" json:"correct_answers"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time `gorm:"type:timestamp" json:"completed_at,omitempty"` // Устанавливается ровно один раз

	DraftAnswers []DraftAnswer   `gorm:"foreignKey:AttemptID" json:"draft_answers,omitempty"`
	Answers      []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (TestAttempt) TableName() string {
	return "test_attempts"
}

// IsInProgress проверяет, находится ли попытка в процессе
func (a *TestAttempt) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// IsTerminal проверяет, находится ли попытка в терминальном статусе
func (a *TestAttempt) IsTerminal() bool {
	return a.Status == AttemptStatusCompleted ||
		a.Status == AttemptStatusAbandoned ||
		a.Status == AttemptStatusLate
}

// SubmitStatus классифицирует исход Submit по времени: late, если викторина
// ограничена по времени и дедлайн пропущен, иначе completed.
func (a *TestAttempt) SubmitStatus(quiz *Quiz, now time.Time) string {
	if deadline, ok := quiz.Deadline(a.StartedAt); ok && now.After(deadline) {
		return AttemptStatusLate
	}
	return AttemptStatusCompleted
}

// Progress возвращает прогресс попытки как отношение отвеченных вопросов к общему числу
func (a *TestAttempt) Progress() float64 {
	if a.TotalQuestions == 0 {
		return 0
	}
	return float64(len(a.DraftAnswers)) / float64(a.TotalQuestions)
}

// DraftAnswer представляет автосохраненный черновой ответ.
// Уникальный индекс (attempt_id, question_id) гарантирует не более одной записи
// на вопрос: повторный автосейв перезаписывает выбор (last write wins).
type DraftAnswer struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	AttemptID        string `gorm:"size:36;not null;index;uniqueIndex:idx_draft_attempt_question" json:"attempt_id"`
	QuestionID       uint   `gorm:"not null;uniqueIndex:idx_draft_attempt_question" json:"question_id"`
	SelectedOptionID uint   `gorm:"not null" json:"selected_option_id"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (DraftAnswer) TableName() string {
	return "draft_answers"
}

// AttemptAnswer представляет финальный оцененный ответ — неизменяемая запись того,
// что было отправлено на грейдинг. is_correct вычисляется только сервером,
// присланное клиентом значение игнорируется.
type AttemptAnswer struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	AttemptID        string `gorm:"size:36;not null;index" json:"attempt_id"`
	QuestionID       uint   `gorm:"not null" json:"question_id"`
	SelectedOptionID uint   `gorm:"not null;default:0" json:"selected_option_id"` // 0 = вопрос без ответа
	IsCorrect        bool   `gorm:"not null" json:"is_correct"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
