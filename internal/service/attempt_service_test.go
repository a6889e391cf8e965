package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// ============================================================================
// Общие моки репозиториев. Используются также в quiz_service_test.go
// и subscription_service_test.go.
// ============================================================================

// MockAttemptRepository реализует repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(attempt *entity.TestAttempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(id string) (*entity.TestAttempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetWithDrafts(id string) (*entity.TestAttempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetInProgress(userID, quizID uint) (*entity.TestAttempt, error) {
	args := m.Called(userID, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) ListInProgressByUser(userID uint) ([]entity.TestAttempt, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) ListByQuiz(quizID uint, limit, offset int) ([]entity.TestAttempt, int64, error) {
	args := m.Called(quizID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.TestAttempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) ListCompletedByUser(userID uint, limit, offset int) ([]entity.TestAttempt, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) UpsertDraft(attemptID string, questionID, selectedOptionID uint) (bool, error) {
	args := m.Called(attemptID, questionID, selectedOptionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) FinishAttempt(tx *gorm.DB, attemptID string, status string, correctAnswers int, completedAt time.Time) error {
	args := m.Called(tx, attemptID, status, correctAnswers, completedAt)
	return args.Error(0)
}

func (m *MockAttemptRepository) SaveAnswers(tx *gorm.DB, answers []entity.AttemptAnswer) error {
	args := m.Called(tx, answers)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AttemptAnswer), args.Error(1)
}

// MockQuizRepository реализует repository.QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) GetByID(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetWithQuestions(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) Update(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) UpdateInfo(quizID uint, updates map[string]interface{}) error {
	args := m.Called(quizID, updates)
	return args.Error(0)
}

func (m *MockQuizRepository) IncrementQuestionCount(quizID uint, delta int) error {
	args := m.Called(quizID, delta)
	return args.Error(0)
}

func (m *MockQuizRepository) IncrementAttemptCount(tx *gorm.DB, quizID uint) error {
	args := m.Called(tx, quizID)
	return args.Error(0)
}

func (m *MockQuizRepository) List(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByQuizID(quizID uint) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByQuizIDWithCorrectness(quizID uint) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepository) CountByQuizID(quizID uint) (int64, error) {
	args := m.Called(quizID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementStats(tx *gorm.DB, userID uint, quizzesTakenDelta int, correctDelta int) error {
	args := m.Called(tx, userID, quizzesTakenDelta, correctDelta)
	return args.Error(0)
}

func (m *MockUserRepository) SetPremiumUntil(tx *gorm.DB, userID uint, until time.Time) error {
	args := m.Called(tx, userID, until)
	return args.Error(0)
}

func (m *MockUserRepository) GetLeaderboard(limit int) ([]entity.User, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockNotifier реализует Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID uint, notificationType string, payload entity.JSONMap) {
	m.Called(userID, notificationType, payload)
}

// ============================================================================
// Хелперы
// ============================================================================

func newTestAttemptService(
	attemptRepo *MockAttemptRepository,
	quizRepo *MockQuizRepository,
	questionRepo *MockQuestionRepository,
	userRepo *MockUserRepository,
) *AttemptService {
	return NewAttemptService(attemptRepo, quizRepo, questionRepo, userRepo, nil, nil)
}

func regularUser(id uint) *entity.User {
	return &entity.User{ID: id, Username: "player", Role: entity.RoleUser}
}

func premiumUser(id uint) *entity.User {
	until := time.Now().Add(24 * time.Hour)
	return &entity.User{ID: id, Username: "premium", Role: entity.RoleUser, PremiumUntil: &until}
}

// ============================================================================
// StartAttempt
// ============================================================================

func TestAttemptService_StartAttempt_Success(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, Title: "География", QuestionCount: 5}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("Create", mock.AnythingOfType("*entity.TestAttempt")).Return(nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	attempt, resumed, err := svc.StartAttempt(1, 7)

	// Assert
	require.NoError(t, err, "Старт попытки должен быть успешным")
	assert.False(t, resumed, "Новая попытка не должна помечаться как резюмированная")
	assert.NotEmpty(t, attempt.ID, "ID попытки должен быть сгенерирован")
	assert.Equal(t, entity.AttemptStatusInProgress, attempt.Status)
	assert.Equal(t, 5, attempt.TotalQuestions, "Снимок количества вопросов должен быть зафиксирован")
	mockAttemptRepo.AssertExpectations(t)
}

func TestAttemptService_StartAttempt_ResumesExisting(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 5}
	existing := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusInProgress,
	}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(7)).Return(existing, nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	attempt, resumed, err := svc.StartAttempt(1, 7)

	// Assert
	require.NoError(t, err)
	assert.True(t, resumed, "Существующая попытка должна резюмироваться")
	assert.Equal(t, "attempt-1", attempt.ID, "Должна вернуться существующая попытка, а не новая")
	// Create не должен быть вызван
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestAttemptService_StartAttempt_RaceLostReturnsWinner(t *testing.T) {
	// Arrange: между GetInProgress и Create параллельный запрос успел создать попытку
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 3}
	winner := &entity.TestAttempt{ID: "winner", UserID: 1, QuizID: 7, Status: entity.AttemptStatusInProgress}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound).Once()
	mockAttemptRepo.On("Create", mock.AnythingOfType("*entity.TestAttempt")).Return(repository.ErrAttemptInProgress)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(7)).Return(winner, nil).Once()

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	attempt, resumed, err := svc.StartAttempt(1, 7)

	// Assert
	require.NoError(t, err, "Проигранная гонка должна превращаться в резюмирование")
	assert.True(t, resumed)
	assert.Equal(t, "winner", attempt.ID, "Должна вернуться попытка победителя гонки")
	mockAttemptRepo.AssertExpectations(t)
}

func TestAttemptService_StartAttempt_PremiumRequired(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 3, IsPremium: true}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	attempt, _, err := svc.StartAttempt(1, 7)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrPaymentRequired, "Премиум-викторина без подписки должна возвращать ErrPaymentRequired")
	assert.Nil(t, attempt)
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestAttemptService_StartAttempt_PremiumUserAllowed(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 3, IsPremium: true}

	mockUserRepo.On("GetByID", uint(1)).Return(premiumUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("Create", mock.AnythingOfType("*entity.TestAttempt")).Return(nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	_, _, err := svc.StartAttempt(1, 7)

	// Assert
	require.NoError(t, err, "Активная подписка должна открывать премиум-викторину")
}

func TestAttemptService_StartAttempt_HiddenQuizNotFound(t *testing.T) {
	// Arrange: скрытая викторина для постороннего неотличима от несуществующей
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 3, IsHidden: true, CreatorID: 42}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	_, _, err := svc.StartAttempt(1, 7)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAttemptService_StartAttempt_EmptyQuiz(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockUserRepo := new(MockUserRepository)

	quiz := &entity.Quiz{ID: 7, QuestionCount: 0}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(quiz, nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, mockUserRepo)

	// Act
	_, _, err := svc.StartAttempt(1, 7)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation, "Викторина без вопросов не должна допускать старт")
}

// ============================================================================
// Autosave
// ============================================================================

func autosaveFixtures() (*entity.TestAttempt, []entity.Question) {
	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusInProgress,
	}
	questions := []entity.Question{
		{
			ID:     10,
			QuizID: 7,
			Text:   "Столица Франции?",
			Options: []entity.AnswerOption{
				{ID: 100, QuestionID: 10, Text: "Париж", IsCorrect: true},
				{ID: 101, QuestionID: 10, Text: "Лион"},
			},
		},
	}
	return attempt, questions
}

func TestAttemptService_Autosave_Success(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	attempt, questions := autosaveFixtures()

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)
	mockQuestionRepo.On("GetByQuizID", uint(7)).Return(questions, nil)
	mockAttemptRepo.On("UpsertDraft", "attempt-1", uint(10), uint(101)).Return(true, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, mockQuestionRepo, nil)

	// Act
	err := svc.Autosave(1, "attempt-1", 10, 101)

	// Assert
	require.NoError(t, err, "Автосейв валидного выбора должен быть успешным")
	mockAttemptRepo.AssertExpectations(t)
}

func TestAttemptService_Autosave_NotOwner(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	attempt, _ := autosaveFixtures()

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, nil, nil)

	// Act
	err := svc.Autosave(99, "attempt-1", 10, 101)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "Чужая попытка должна быть недоступна")
	mockAttemptRepo.AssertNotCalled(t, "UpsertDraft")
}

func TestAttemptService_Autosave_TerminalAttempt(t *testing.T) {
	// Arrange: автосейв по завершенной попытке — тихий no-op без ошибки
	mockAttemptRepo := new(MockAttemptRepository)
	attempt, _ := autosaveFixtures()
	attempt.Status = entity.AttemptStatusCompleted

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, nil, nil)

	// Act
	err := svc.Autosave(1, "attempt-1", 10, 101)

	// Assert
	require.NoError(t, err, "Автосейв после завершения попытки не должен возвращать ошибку")
	mockAttemptRepo.AssertNotCalled(t, "UpsertDraft")
}

func TestAttemptService_Autosave_ForeignOption(t *testing.T) {
	// Arrange: вариант не принадлежит вопросу
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	attempt, questions := autosaveFixtures()

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)
	mockQuestionRepo.On("GetByQuizID", uint(7)).Return(questions, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, mockQuestionRepo, nil)

	// Act
	err := svc.Autosave(1, "attempt-1", 10, 999)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockAttemptRepo.AssertNotCalled(t, "UpsertDraft")
}

func TestAttemptService_Autosave_LostRaceToTerminal(t *testing.T) {
	// Arrange: между чтением попытки и записью черновика попытка была завершена.
	// Гарантия на уровне SQL: UpsertDraft возвращает false, черновик не воскрешается.
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	attempt, questions := autosaveFixtures()

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)
	mockQuestionRepo.On("GetByQuizID", uint(7)).Return(questions, nil)
	mockAttemptRepo.On("UpsertDraft", "attempt-1", uint(10), uint(100)).Return(false, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, mockQuestionRepo, nil)

	// Act
	err := svc.Autosave(1, "attempt-1", 10, 100)

	// Assert: черновик не записан, но клиенту ошибка не возвращается
	require.NoError(t, err)
	mockAttemptRepo.AssertCalled(t, "UpsertDraft", "attempt-1", uint(10), uint(100))
}

// ============================================================================
// Submit / Abandon
// ============================================================================

func TestAttemptService_Submit_AlreadyFinished(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusLate,
	}

	mockAttemptRepo.On("GetWithDrafts", "attempt-1").Return(attempt, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, nil, nil)

	// Act
	result, err := svc.Submit(1, "attempt-1", nil)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict, "Повторный Submit должен возвращать конфликт")
	assert.Nil(t, result)
	mockAttemptRepo.AssertNotCalled(t, "FinishAttempt")
}

func TestAttemptService_Submit_NotOwner(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusInProgress,
	}

	mockAttemptRepo.On("GetWithDrafts", "attempt-1").Return(attempt, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, nil, nil)

	// Act
	_, err := svc.Submit(99, "attempt-1", nil)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAttemptService_Submit_ForeignFinalAnswer(t *testing.T) {
	// Arrange: финальный ответ ссылается на чужой вариант
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockQuestionRepo := new(MockQuestionRepository)

	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusInProgress,
	}
	mockAttemptRepo.On("GetWithDrafts", "attempt-1").Return(attempt, nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(&entity.Quiz{ID: 7}, nil)
	mockQuestionRepo.On("GetByQuizIDWithCorrectness", uint(7)).Return(gradingQuestions(), nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, mockQuestionRepo, nil)

	// Act
	_, err := svc.Submit(1, "attempt-1", []SubmitAnswerInput{{QuestionID: 10, SelectedOptionID: 999}})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockAttemptRepo.AssertNotCalled(t, "FinishAttempt")
}

func TestAttemptService_Submit_UnknownFinalQuestion(t *testing.T) {
	// Arrange: вопрос из финальных ответов не принадлежит викторине
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)
	mockQuestionRepo := new(MockQuestionRepository)

	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		QuizID: 7,
		Status: entity.AttemptStatusInProgress,
	}
	mockAttemptRepo.On("GetWithDrafts", "attempt-1").Return(attempt, nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(&entity.Quiz{ID: 7}, nil)
	mockQuestionRepo.On("GetByQuizIDWithCorrectness", uint(7)).Return(gradingQuestions(), nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, mockQuestionRepo, nil)

	// Act
	_, err := svc.Submit(1, "attempt-1", []SubmitAnswerInput{{QuestionID: 77, SelectedOptionID: 100}})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockAttemptRepo.AssertNotCalled(t, "FinishAttempt")
}

func TestAttemptService_Abandon_AlreadyFinished(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	attempt := &entity.TestAttempt{
		ID:     "attempt-1",
		UserID: 1,
		Status: entity.AttemptStatusAbandoned,
	}

	mockAttemptRepo.On("GetByID", "attempt-1").Return(attempt, nil)

	svc := newTestAttemptService(mockAttemptRepo, nil, nil, nil)

	// Act
	err := svc.Abandon(1, "attempt-1")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	mockAttemptRepo.AssertNotCalled(t, "FinishAttempt")
}

// ============================================================================
// Грейдинг
// ============================================================================

func gradingQuestions() []entity.Question {
	return []entity.Question{
		{
			ID: 10,
			Options: []entity.AnswerOption{
				{ID: 100, IsCorrect: true},
				{ID: 101},
			},
		},
		{
			ID: 11,
			Options: []entity.AnswerOption{
				{ID: 110},
				{ID: 111, IsCorrect: true},
			},
		},
		{
			ID: 12,
			Options: []entity.AnswerOption{
				{ID: 120, IsCorrect: true},
				{ID: 121},
			},
		},
	}
}

func TestGradeAttempt_CountsOnlyCorrectAnswers(t *testing.T) {
	// Arrange: один правильный, один неправильный, один без ответа
	attempt := &entity.TestAttempt{
		ID: "attempt-1",
		DraftAnswers: []entity.DraftAnswer{
			{QuestionID: 10, SelectedOptionID: 100}, // правильно
			{QuestionID: 11, SelectedOptionID: 110}, // неправильно
		},
	}

	// Act
	answers, correct := gradeAttempt(attempt, nil, gradingQuestions())

	// Assert
	assert.Equal(t, 1, correct, "Засчитан должен быть только правильный ответ")
	require.Len(t, answers, 3, "На каждый вопрос должна быть ровно одна финальная запись")

	byQuestion := make(map[uint]entity.AttemptAnswer)
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	assert.True(t, byQuestion[10].IsCorrect)
	assert.False(t, byQuestion[11].IsCorrect)
	assert.False(t, byQuestion[12].IsCorrect, "Вопрос без ответа не должен засчитываться")
	assert.Equal(t, uint(0), byQuestion[12].SelectedOptionID, "Неотвеченный вопрос фиксируется с selected_option_id = 0")
}

func TestGradeAttempt_EmptyDrafts(t *testing.T) {
	// Arrange
	attempt := &entity.TestAttempt{ID: "attempt-1"}

	// Act
	answers, correct := gradeAttempt(attempt, nil, gradingQuestions())

	// Assert
	assert.Equal(t, 0, correct, "Без ответов счет должен быть нулевым")
	assert.Len(t, answers, 3)
}

func TestGradeAttempt_LastWriteWinsAtStorageLevel(t *testing.T) {
	// Arrange: в хранилище по одному черновику на вопрос (уникальный индекс),
	// поэтому грейдинг видит только последний выбор
	attempt := &entity.TestAttempt{
		ID: "attempt-1",
		DraftAnswers: []entity.DraftAnswer{
			{QuestionID: 10, SelectedOptionID: 101},
			{QuestionID: 11, SelectedOptionID: 111},
			{QuestionID: 12, SelectedOptionID: 120},
		},
	}

	// Act
	answers, correct := gradeAttempt(attempt, nil, gradingQuestions())

	// Assert
	assert.Equal(t, 2, correct)
	assert.Len(t, answers, 3)
}

func TestGradeAttempt_SubmitAnswersOverrideDrafts(t *testing.T) {
	// Arrange: черновик по вопросу 10 устарел (последний автосейв потерян),
	// клиент прислал актуальный выбор вместе с Submit
	attempt := &entity.TestAttempt{
		ID: "attempt-1",
		DraftAnswers: []entity.DraftAnswer{
			{QuestionID: 10, SelectedOptionID: 101}, // неправильный устаревший выбор
			{QuestionID: 11, SelectedOptionID: 111}, // правильный
		},
	}
	final := []SubmitAnswerInput{
		{QuestionID: 10, SelectedOptionID: 100}, // правильный, перекрывает черновик
	}

	// Act
	answers, correct := gradeAttempt(attempt, final, gradingQuestions())

	// Assert
	assert.Equal(t, 2, correct, "Финальный ответ должен перекрывать черновик")
	require.Len(t, answers, 3)

	byQuestion := make(map[uint]entity.AttemptAnswer)
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	assert.Equal(t, uint(100), byQuestion[10].SelectedOptionID)
	assert.True(t, byQuestion[10].IsCorrect)
	assert.True(t, byQuestion[11].IsCorrect, "Черновик без финального ответа должен сохраняться")
	assert.False(t, byQuestion[12].IsCorrect)
}

// ============================================================================
// ListInProgress
// ============================================================================

func TestAttemptService_ListInProgress_AnnotatesQuizTitle(t *testing.T) {
	// Arrange
	mockAttemptRepo := new(MockAttemptRepository)
	mockQuizRepo := new(MockQuizRepository)

	attempts := []entity.TestAttempt{
		{
			ID:             "attempt-1",
			UserID:         1,
			QuizID:         7,
			Status:         entity.AttemptStatusInProgress,
			TotalQuestions: 4,
			DraftAnswers: []entity.DraftAnswer{
				{QuestionID: 10, SelectedOptionID: 100},
				{QuestionID: 11, SelectedOptionID: 111},
			},
		},
	}
	mockAttemptRepo.On("ListInProgressByUser", uint(1)).Return(attempts, nil)
	mockQuizRepo.On("GetByID", uint(7)).Return(&entity.Quiz{ID: 7, Title: "География"}, nil)

	svc := newTestAttemptService(mockAttemptRepo, mockQuizRepo, nil, nil)

	// Act
	items, err := svc.ListInProgress(1)

	// Assert
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "География", items[0].QuizTitle, "Попытка должна быть аннотирована названием викторины")
	assert.Equal(t, 0.5, items[0].Attempt.Progress(), "Прогресс считается как отвеченные/всего вопросов")
	mockQuizRepo.AssertExpectations(t)
}
