package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// QuizService предоставляет методы для авторинга и каталога викторин
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	userRepo     repository.UserRepository
	cacheRepo    repository.CacheRepository
	notifier     Notifier
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	notifier Notifier,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		userRepo:     userRepo,
		cacheRepo:    cacheRepo,
		notifier:     notifier,
	}
}

// QuizInput содержит данные для создания или обновления викторины
type QuizInput struct {
	Title        string
	Description  string
	TimeLimitMin int
	IsPremium    bool
	IsHidden     bool
}

// QuestionInput содержит данные для создания вопроса с вариантами ответов
type QuestionInput struct {
	Text     string
	ImageURL string
	Options  []OptionInput
}

// OptionInput содержит данные варианта ответа
type OptionInput struct {
	Text      string
	IsCorrect bool
}

// CreateQuiz создает новую викторину (без вопросов, скрытой от каталога
// делает флаг IsHidden)
func (s *QuizService) CreateQuiz(creatorID uint, input QuizInput) (*entity.Quiz, error) {
	if err := validateQuizInput(input); err != nil {
		return nil, err
	}

	quiz := &entity.Quiz{
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		CreatorID:    creatorID,
		TimeLimitMin: input.TimeLimitMin,
		IsPremium:    input.IsPremium,
		IsHidden:     input.IsHidden,
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	log.Printf("[QuizService] Создана викторина ID=%d (%s) пользователем %d", quiz.ID, quiz.Title, creatorID)
	return quiz, nil
}

// GetQuiz возвращает викторину по ID с проверкой видимости
func (s *QuizService) GetQuiz(quizID, userID uint, isAdmin bool) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.VisibleTo(userID, isAdmin) {
		return nil, apperrors.ErrNotFound
	}
	return quiz, nil
}

// GetQuizWithQuestions возвращает викторину с вопросами и вариантами.
// Флаги правильности вариантов не сериализуются клиенту.
func (s *QuizService) GetQuizWithQuestions(quizID, userID uint, isAdmin bool) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.VisibleTo(userID, isAdmin) {
		return nil, apperrors.ErrNotFound
	}
	return quiz, nil
}

// cachedCatalogPage — сериализуемая страница каталога для Redis
type cachedCatalogPage struct {
	Quizzes []entity.Quiz `json:"quizzes"`
	Total   int64         `json:"total"`
}

// ListQuizzes возвращает каталог викторин с фильтрами и пагинацией.
// Публичные страницы без фильтров кешируются в Redis на короткий TTL:
// каталог — самый горячий запрос, минутная задержка обновления допустима.
func (s *QuizService) ListQuizzes(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := s.cacheRepo != nil && !filters.IncludeHidden &&
		filters.Search == "" && filters.Premium == nil && filters.CreatorID == 0

	cacheKey := fmt.Sprintf("quizzes:catalog:%d:%d", limit, offset)
	if cacheable {
		var page cachedCatalogPage
		if err := s.cacheRepo.GetJSON(cacheKey, &page); err == nil {
			return page.Quizzes, page.Total, nil
		}
	}

	quizzes, total, err := s.quizRepo.List(filters, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		if err := s.cacheRepo.SetJSON(cacheKey, cachedCatalogPage{Quizzes: quizzes, Total: total}, time.Minute); err != nil {
			log.Printf("[QuizService] Ошибка кеширования каталога: %v", err)
		}
	}

	return quizzes, total, nil
}

// UpdateQuiz обновляет информацию о викторине. Разрешено создателю и администратору.
// Публикация скрытой викторины (is_hidden: true → false) отправляет создателю
// уведомление quiz:published.
func (s *QuizService) UpdateQuiz(quizID, userID uint, isAdmin bool, input QuizInput) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}

	if quiz.CreatorID != userID && !isAdmin {
		return nil, apperrors.ErrForbidden
	}

	if err := validateQuizInput(input); err != nil {
		return nil, err
	}

	published := quiz.IsHidden && !input.IsHidden

	updates := map[string]interface{}{
		"title":          strings.TrimSpace(input.Title),
		"description":    strings.TrimSpace(input.Description),
		"time_limit_min": input.TimeLimitMin,
		"is_premium":     input.IsPremium,
		"is_hidden":      input.IsHidden,
	}
	if err := s.quizRepo.UpdateInfo(quizID, updates); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	if published && s.notifier != nil {
		s.notifier.Notify(quiz.CreatorID, entity.NotificationQuizPublished, entity.JSONMap{
			"quiz_id":    quiz.ID,
			"quiz_title": strings.TrimSpace(input.Title),
		})
	}

	return s.quizRepo.GetByID(quizID)
}

// DeleteQuiz удаляет викторину. Разрешено создателю и администратору.
func (s *QuizService) DeleteQuiz(quizID, userID uint, isAdmin bool) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}

	if quiz.CreatorID != userID && !isAdmin {
		return apperrors.ErrForbidden
	}

	if err := s.quizRepo.Delete(quizID); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	log.Printf("[QuizService] Удалена викторина ID=%d пользователем %d", quizID, userID)
	return nil
}

// AddQuestions добавляет вопросы к викторине и обновляет question_count
func (s *QuizService) AddQuestions(quizID, userID uint, isAdmin bool, inputs []QuestionInput) ([]entity.Question, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}

	if quiz.CreatorID != userID && !isAdmin {
		return nil, apperrors.ErrForbidden
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: список вопросов пуст", apperrors.ErrValidation)
	}

	questions := make([]entity.Question, 0, len(inputs))
	for i, in := range inputs {
		q, err := buildQuestion(quizID, quiz.QuestionCount+i, in)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	if err := s.quizRepo.IncrementQuestionCount(quizID, len(questions)); err != nil {
		log.Printf("[QuizService] Ошибка обновления question_count для викторины %d: %v", quizID, err)
	}

	log.Printf("[QuizService] Добавлено %d вопросов к викторине %d", len(questions), quizID)
	return questions, nil
}

// DeleteQuestion удаляет вопрос и уменьшает question_count
func (s *QuizService) DeleteQuestion(quizID, questionID, userID uint, isAdmin bool) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}

	if quiz.CreatorID != userID && !isAdmin {
		return apperrors.ErrForbidden
	}

	questions, err := s.questionRepo.GetByQuizID(quizID)
	if err != nil {
		return err
	}
	found := false
	for i := range questions {
		if questions[i].ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return apperrors.ErrNotFound
	}

	if err := s.questionRepo.Delete(questionID); err != nil {
		return err
	}

	if err := s.quizRepo.IncrementQuestionCount(quizID, -1); err != nil {
		log.Printf("[QuizService] Ошибка обновления question_count для викторины %d: %v", quizID, err)
	}

	return nil
}

// validateQuizInput проверяет поля викторины
func validateQuizInput(input QuizInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: название викторины обязательно", apperrors.ErrValidation)
	}
	if len(title) > 100 {
		return fmt.Errorf("%w: название викторины не должно превышать 100 символов", apperrors.ErrValidation)
	}
	if input.TimeLimitMin < 0 || time.Duration(input.TimeLimitMin)*time.Minute > 24*time.Hour {
		return fmt.Errorf("%w: недопустимый лимит времени", apperrors.ErrValidation)
	}
	return nil
}

// buildQuestion проверяет и собирает вопрос с вариантами ответов.
// Требования: непустой текст, от 2 до 6 вариантов, ровно один правильный.
func buildQuestion(quizID uint, position int, in QuestionInput) (*entity.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: текст вопроса обязателен", apperrors.ErrValidation)
	}
	if len(in.Options) < 2 || len(in.Options) > 6 {
		return nil, fmt.Errorf("%w: вопрос должен содержать от 2 до 6 вариантов", apperrors.ErrValidation)
	}

	correctCount := 0
	options := make([]entity.AnswerOption, 0, len(in.Options))
	for i, opt := range in.Options {
		optText := strings.TrimSpace(opt.Text)
		if optText == "" {
			return nil, fmt.Errorf("%w: текст варианта ответа обязателен", apperrors.ErrValidation)
		}
		if opt.IsCorrect {
			correctCount++
		}
		options = append(options, entity.AnswerOption{
			Text:      optText,
			IsCorrect: opt.IsCorrect,
			Position:  i,
		})
	}
	if correctCount != 1 {
		return nil, fmt.Errorf("%w: вопрос должен содержать ровно один правильный вариант", apperrors.ErrValidation)
	}

	return &entity.Question{
		QuizID:   quizID,
		Text:     text,
		ImageURL: strings.TrimSpace(in.ImageURL),
		Position: position,
		Options:  options,
	}, nil
}
