package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_CorrectOptionID(t *testing.T) {
	question := &Question{
		Options: []AnswerOption{
			{ID: 1, Text: "Неправильный"},
			{ID: 2, Text: "Правильный", IsCorrect: true},
			{ID: 3, Text: "Еще неправильный"},
		},
	}

	assert.Equal(t, uint(2), question.CorrectOptionID())
}

func TestQuestion_CorrectOptionID_NoOptionsLoaded(t *testing.T) {
	question := &Question{}

	assert.Equal(t, uint(0), question.CorrectOptionID(), "Без загруженных вариантов должен возвращаться 0")
}

func TestQuestion_HasOption(t *testing.T) {
	question := &Question{
		Options: []AnswerOption{
			{ID: 1},
			{ID: 2},
		},
	}

	assert.True(t, question.HasOption(2))
	assert.False(t, question.HasOption(99), "Чужой вариант не должен проходить проверку принадлежности")
}
