package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_BeforeSave_HashesPassword(t *testing.T) {
	user := &User{Email: "test@example.com", Password: "secret-password"}

	err := user.BeforeSave(nil)

	require.NoError(t, err)
	assert.NotEqual(t, "secret-password", user.Password, "Пароль должен быть захеширован")
	assert.True(t, user.CheckPassword("secret-password"), "Хеш должен соответствовать исходному паролю")
	assert.False(t, user.CheckPassword("wrong-password"))
}

func TestUser_BeforeSave_DoesNotRehash(t *testing.T) {
	user := &User{Email: "test@example.com", Password: "secret-password"}
	require.NoError(t, user.BeforeSave(nil))
	hashed := user.Password

	// Повторное сохранение не должно менять уже захешированный пароль
	require.NoError(t, user.BeforeSave(nil))
	assert.Equal(t, hashed, user.Password)
}

func TestUser_HasActivePremium(t *testing.T) {
	now := time.Now()

	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&User{PremiumUntil: &future}).HasActivePremium(now))
	assert.False(t, (&User{PremiumUntil: &past}).HasActivePremium(now), "Истекший премиум не активен")
	assert.False(t, (&User{}).HasActivePremium(now), "Без подписки премиум не активен")
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
}
