package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// Notifier доставляет уведомление пользователю (инбокс + WebSocket push).
// Вызовы best-effort: ошибки доставки не откатывают бизнес-операцию.
type Notifier interface {
	Notify(userID uint, notificationType string, payload entity.JSONMap)
}

// AttemptService управляет жизненным циклом попыток прохождения тестов:
// старт с резюмированием, автосохранение черновиков, серверный грейдинг
// при отправке и терминальные переходы.
type AttemptService struct {
	attemptRepo  repository.AttemptRepository
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	userRepo     repository.UserRepository
	notifier     Notifier
	db           *gorm.DB
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	db *gorm.DB,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		db:           db,
	}
}

// StartAttempt начинает попытку прохождения викторины или возвращает
// существующую in_progress попытку пары (user, quiz) — старт идемпотентен,
// дубликаты не создаются. Второе возвращаемое значение true при резюмировании.
func (s *AttemptService) StartAttempt(userID, quizID uint) (*entity.TestAttempt, bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, false, err
	}

	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, false, err
	}

	// Скрытая викторина для посторонних неотличима от несуществующей
	if !quiz.VisibleTo(userID, user.IsAdmin()) {
		return nil, false, apperrors.ErrNotFound
	}

	if quiz.IsPremium && !user.IsAdmin() && !user.HasActivePremium(time.Now()) {
		return nil, false, fmt.Errorf("%w: викторина доступна только по подписке", apperrors.ErrPaymentRequired)
	}

	if quiz.QuestionCount == 0 {
		return nil, false, fmt.Errorf("%w: викторина не содержит вопросов", apperrors.ErrValidation)
	}

	// Резюмирование: существующая in_progress попытка возвращается как есть
	existing, err := s.attemptRepo.GetInProgress(userID, quizID)
	if err == nil {
		log.Printf("[AttemptService] Пользователь %d резюмирует попытку %s (викторина %d)", userID, existing.ID, quizID)
		return existing, true, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	attempt := &entity.TestAttempt{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuizID:         quizID,
		Status:         entity.AttemptStatusInProgress,
		TotalQuestions: quiz.QuestionCount,
		StartedAt:      time.Now(),
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		// Проигранная гонка двух одновременных стартов: победившая попытка
		// уже существует, возвращаем ее как резюмирование
		if errors.Is(err, repository.ErrAttemptInProgress) {
			winner, ferr := s.attemptRepo.GetInProgress(userID, quizID)
			if ferr != nil {
				return nil, false, fmt.Errorf("%w: попытка уже выполняется", apperrors.ErrConflict)
			}
			log.Printf("[AttemptService] Гонка стартов: пользователь %d получает попытку %s", userID, winner.ID)
			return winner, true, nil
		}
		return nil, false, err
	}

	log.Printf("[AttemptService] Пользователь %d начал попытку %s (викторина %d, вопросов %d)",
		userID, attempt.ID, quizID, attempt.TotalQuestions)
	return attempt, false, nil
}

// Autosave сохраняет черновой выбор по одному вопросу (last write wins).
// Черновик не влияет на счет до Submit. Автосейв по терминальной попытке —
// тихий no-op: клиент мог отправить запись до того, как узнал о завершении.
func (s *AttemptService) Autosave(userID uint, attemptID string, questionID, selectedOptionID uint) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}

	if attempt.UserID != userID {
		return apperrors.ErrForbidden
	}

	if attempt.IsTerminal() {
		return nil
	}

	question, err := s.findQuestion(attempt.QuizID, questionID)
	if err != nil {
		return err
	}
	if !question.HasOption(selectedOptionID) {
		return fmt.Errorf("%w: вариант %d не принадлежит вопросу %d", apperrors.ErrValidation, selectedOptionID, questionID)
	}

	// Запись выполняется с проверкой статуса в том же SQL-запросе:
	// автосейв, проигравший гонку терминальному переходу, становится no-op
	saved, err := s.attemptRepo.UpsertDraft(attemptID, questionID, selectedOptionID)
	if err != nil {
		return err
	}
	if !saved {
		log.Printf("[AttemptService] Автосейв по завершенной попытке %s пропущен", attemptID)
	}

	return nil
}

// SubmitAnswerInput — финальный выбор по вопросу, присланный вместе с Submit
type SubmitAnswerInput struct {
	QuestionID       uint
	SelectedOptionID uint
}

// Submit завершает попытку: грейдит накопленные черновики по серверным данным,
// фиксирует финальные ответы и счетчики в одной транзакции. Необязательный
// final перекрывает черновики (last write wins) — так клиент восполняет
// автосейв, потерянный по дороге. Статус completed или late в зависимости
// от дедлайна. Повторный Submit возвращает ErrConflict.
func (s *AttemptService) Submit(userID uint, attemptID string, final []SubmitAnswerInput) (*entity.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetWithDrafts(attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	if attempt.IsTerminal() {
		return nil, fmt.Errorf("%w: попытка уже завершена", apperrors.ErrConflict)
	}

	quiz, err := s.quizRepo.GetByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.GetByQuizIDWithCorrectness(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	questionsByID := make(map[uint]*entity.Question, len(questions))
	for i := range questions {
		questionsByID[questions[i].ID] = &questions[i]
	}
	for _, f := range final {
		q, ok := questionsByID[f.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: вопрос %d не принадлежит викторине %d", apperrors.ErrValidation, f.QuestionID, attempt.QuizID)
		}
		if !q.HasOption(f.SelectedOptionID) {
			return nil, fmt.Errorf("%w: вариант %d не принадлежит вопросу %d", apperrors.ErrValidation, f.SelectedOptionID, f.QuestionID)
		}
	}

	// Грейдинг строго по серверным данным: выбор приходит от клиента,
	// правильность вычисляется здесь
	now := time.Now()
	answers, correct := gradeAttempt(attempt, final, questions)
	status := attempt.SubmitStatus(quiz, now)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.attemptRepo.FinishAttempt(tx, attemptID, status, correct, now); err != nil {
			return err
		}
		if err := s.attemptRepo.SaveAnswers(tx, answers); err != nil {
			return err
		}
		if err := s.quizRepo.IncrementAttemptCount(tx, attempt.QuizID); err != nil {
			return err
		}
		return s.userRepo.IncrementStats(tx, userID, 1, correct)
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinished) {
			return nil, fmt.Errorf("%w: попытка уже завершена", apperrors.ErrConflict)
		}
		return nil, err
	}

	attempt.Status = status
	attempt.CorrectAnswers = correct
	attempt.CompletedAt = &now
	attempt.Answers = answers

	log.Printf("[AttemptService] Попытка %s завершена: статус=%s, счет=%d/%d",
		attemptID, status, correct, attempt.TotalQuestions)

	if s.notifier != nil {
		s.notifier.Notify(userID, entity.NotificationAttemptCompleted, entity.JSONMap{
			"attempt_id":      attempt.ID,
			"quiz_id":         attempt.QuizID,
			"quiz_title":      quiz.Title,
			"status":          status,
			"correct_answers": correct,
			"total_questions": attempt.TotalQuestions,
		})
	}

	return attempt, nil
}

// Abandon переводит попытку в терминальный статус abandoned. Черновики
// не грейдятся, счетчики викторины и лидерборда не меняются.
func (s *AttemptService) Abandon(userID uint, attemptID string) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}

	if attempt.UserID != userID {
		return apperrors.ErrForbidden
	}

	if attempt.IsTerminal() {
		return fmt.Errorf("%w: попытка уже завершена", apperrors.ErrConflict)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.attemptRepo.FinishAttempt(tx, attemptID, entity.AttemptStatusAbandoned, 0, time.Now())
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinished) {
			return fmt.Errorf("%w: попытка уже завершена", apperrors.ErrConflict)
		}
		return err
	}

	log.Printf("[AttemptService] Попытка %s брошена пользователем %d", attemptID, userID)
	return nil
}

// GetAttempt возвращает попытку владельцу (или администратору) вместе
// с черновиками для in_progress и финальными ответами для терминальных.
func (s *AttemptService) GetAttempt(userID uint, isAdmin bool, attemptID string) (*entity.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetWithDrafts(attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.UserID != userID && !isAdmin {
		return nil, apperrors.ErrForbidden
	}

	if attempt.IsTerminal() {
		answers, err := s.attemptRepo.GetAnswers(attemptID)
		if err != nil {
			return nil, err
		}
		attempt.Answers = answers
	}

	return attempt, nil
}

// InProgressAttempt — незавершенная попытка с названием викторины для списка
// "продолжить прохождение"
type InProgressAttempt struct {
	Attempt   entity.TestAttempt
	QuizTitle string
}

// ListInProgress возвращает все незавершенные попытки пользователя,
// аннотированные названием викторины. Прогресс считается по черновикам.
func (s *AttemptService) ListInProgress(userID uint) ([]InProgressAttempt, error) {
	attempts, err := s.attemptRepo.ListInProgressByUser(userID)
	if err != nil {
		return nil, err
	}

	titles := make(map[uint]string, len(attempts))
	items := make([]InProgressAttempt, 0, len(attempts))
	for i := range attempts {
		quizID := attempts[i].QuizID
		title, ok := titles[quizID]
		if !ok {
			quiz, qerr := s.quizRepo.GetByID(quizID)
			if qerr != nil {
				log.Printf("[AttemptService] Не удалось получить викторину %d для списка попыток: %v", quizID, qerr)
			} else {
				title = quiz.Title
			}
			titles[quizID] = title
		}
		items = append(items, InProgressAttempt{Attempt: attempts[i], QuizTitle: title})
	}

	return items, nil
}

// ListHistory возвращает терминальные попытки пользователя с пагинацией
func (s *AttemptService) ListHistory(userID uint, limit, offset int) ([]entity.TestAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.attemptRepo.ListCompletedByUser(userID, limit, offset)
}

// ListQuizResults возвращает завершенные попытки викторины (таблица результатов)
func (s *AttemptService) ListQuizResults(quizID uint, limit, offset int) ([]entity.TestAttempt, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, 0, err
	}
	return s.attemptRepo.ListByQuiz(quizID, limit, offset)
}

// AttemptExportRow — строка выгрузки результатов викторины
type AttemptExportRow struct {
	Rank           int
	Username       string
	Status         string
	CorrectAnswers int
	TotalQuestions int
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// ExportQuizResults собирает все завершенные попытки викторины с именами
// пользователей для административной выгрузки
func (s *AttemptService) ExportQuizResults(quizID uint) ([]AttemptExportRow, error) {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, err
	}

	const exportLimit = 10000
	attempts, _, err := s.attemptRepo.ListByQuiz(quizID, exportLimit, 0)
	if err != nil {
		return nil, err
	}

	usernames := make(map[uint]string)
	rows := make([]AttemptExportRow, 0, len(attempts))
	for i, a := range attempts {
		name, ok := usernames[a.UserID]
		if !ok {
			user, uerr := s.userRepo.GetByID(a.UserID)
			if uerr != nil {
				name = fmt.Sprintf("user#%d", a.UserID)
			} else {
				name = user.Username
			}
			usernames[a.UserID] = name
		}
		rows = append(rows, AttemptExportRow{
			Rank:           i + 1,
			Username:       name,
			Status:         a.Status,
			CorrectAnswers: a.CorrectAnswers,
			TotalQuestions: a.TotalQuestions,
			StartedAt:      a.StartedAt,
			CompletedAt:    a.CompletedAt,
		})
	}

	return rows, nil
}

// findQuestion возвращает вопрос викторины с вариантами или ErrValidation,
// если вопрос не принадлежит викторине
func (s *AttemptService) findQuestion(quizID, questionID uint) (*entity.Question, error) {
	questions, err := s.questionRepo.GetByQuizID(quizID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: вопрос %d не принадлежит викторине %d", apperrors.ErrValidation, questionID, quizID)
}

// gradeAttempt сопоставляет выбор пользователя с правильными вариантами.
// Ответы из Submit перекрывают черновики по тем же вопросам. На каждый вопрос
// викторины создается ровно одна финальная запись; вопрос без выбора
// фиксируется как неотвеченный (selected_option_id = 0).
func gradeAttempt(attempt *entity.TestAttempt, final []SubmitAnswerInput, questions []entity.Question) ([]entity.AttemptAnswer, int) {
	selections := make(map[uint]uint, len(attempt.DraftAnswers)+len(final))
	for _, d := range attempt.DraftAnswers {
		selections[d.QuestionID] = d.SelectedOptionID
	}
	for _, f := range final {
		selections[f.QuestionID] = f.SelectedOptionID
	}

	answers := make([]entity.AttemptAnswer, 0, len(questions))
	correct := 0
	for i := range questions {
		q := &questions[i]
		selected := selections[q.ID]
		isCorrect := selected != 0 && selected == q.CorrectOptionID()
		if isCorrect {
			correct++
		}
		answers = append(answers, entity.AttemptAnswer{
			AttemptID:        attempt.ID,
			QuestionID:       q.ID,
			SelectedOptionID: selected,
			IsCorrect:        isCorrect,
		})
	}

	return answers, correct
}
