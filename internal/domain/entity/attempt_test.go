package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTestAttempt_IsTerminal(t *testing.T) {
	cases := []struct {
		status   string
		terminal bool
	}{
		{AttemptStatusInProgress, false},
		{AttemptStatusCompleted, true},
		{AttemptStatusLate, true},
		{AttemptStatusAbandoned, true},
	}

	for _, tc := range cases {
		attempt := &TestAttempt{Status: tc.status}
		assert.Equal(t, tc.terminal, attempt.IsTerminal(), "статус %s", tc.status)
	}
}

func TestTestAttempt_SubmitStatus_BeforeDeadline(t *testing.T) {
	// Лимит 30 минут, отправка через 10 минут после старта
	quiz := &Quiz{TimeLimitMin: 30}
	started := time.Now().Add(-10 * time.Minute)
	attempt := &TestAttempt{StartedAt: started}

	status := attempt.SubmitStatus(quiz, time.Now())

	assert.Equal(t, AttemptStatusCompleted, status, "Отправка до дедлайна должна классифицироваться как completed")
}

func TestTestAttempt_SubmitStatus_AfterDeadline(t *testing.T) {
	// Лимит 30 минут, отправка через час после старта
	quiz := &Quiz{TimeLimitMin: 30}
	started := time.Now().Add(-1 * time.Hour)
	attempt := &TestAttempt{StartedAt: started}

	status := attempt.SubmitStatus(quiz, time.Now())

	assert.Equal(t, AttemptStatusLate, status, "Отправка после дедлайна должна классифицироваться как late")
}

func TestTestAttempt_SubmitStatus_UntimedQuiz(t *testing.T) {
	// Викторина без лимита времени: late невозможен, сколько бы ни прошло
	quiz := &Quiz{TimeLimitMin: 0}
	started := time.Now().Add(-100 * time.Hour)
	attempt := &TestAttempt{StartedAt: started}

	status := attempt.SubmitStatus(quiz, time.Now())

	assert.Equal(t, AttemptStatusCompleted, status, "Викторина без лимита всегда завершается как completed")
}

func TestTestAttempt_Progress(t *testing.T) {
	attempt := &TestAttempt{
		TotalQuestions: 4,
		DraftAnswers: []DraftAnswer{
			{QuestionID: 1, SelectedOptionID: 10},
			{QuestionID: 2, SelectedOptionID: 20},
		},
	}

	assert.InDelta(t, 0.5, attempt.Progress(), 0.001)
}

func TestTestAttempt_Progress_EmptyQuiz(t *testing.T) {
	attempt := &TestAttempt{TotalQuestions: 0}

	assert.Equal(t, 0.0, attempt.Progress(), "Деление на ноль не должно происходить")
}
