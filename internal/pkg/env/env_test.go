package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := Env
	Env = values
	t.Cleanup(func() { Env = prev })
}

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	withEnv(t, map[string]string{"APP_PORT": "5000"})
	t.Setenv("APP_PORT", "6000")

	assert.Equal(t, "5000", GetEnv("APP_PORT", "4000"))
	assert.Equal(t, "fallback", GetEnv("NOT_SET_ANYWHERE", "fallback"))
}

func TestGetEnvFallsBackToOS(t *testing.T) {
	withEnv(t, map[string]string{})
	t.Setenv("CACHE_HOST", "redis")

	assert.Equal(t, "redis", GetEnv("CACHE_HOST", "localhost"))
}

func TestGetEnvInt(t *testing.T) {
	withEnv(t, map[string]string{"A": "12", "B": "nope"})

	assert.Equal(t, 12, GetEnvInt("A", 1))
	assert.Equal(t, 1, GetEnvInt("B", 1))
	assert.Equal(t, 7, GetEnvInt("C", 7))
}

func TestGetEnvDuration(t *testing.T) {
	withEnv(t, map[string]string{
		"GO_DURATION": "1500ms",
		"SECONDS":     "20",
		"BROKEN":      "soon",
		"NEGATIVE":    "-5s",
	})

	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("GO_DURATION", time.Second))
	assert.Equal(t, 20*time.Second, GetEnvDuration("SECONDS", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("BROKEN", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("NEGATIVE", time.Second))
	assert.Equal(t, 3*time.Second, GetEnvDuration("MISSING", 3*time.Second))
}

func TestIsDev(t *testing.T) {
	withEnv(t, map[string]string{"APP_ENV": "dev"})
	assert.True(t, IsDev())

	withEnv(t, map[string]string{"APP_ENV": "prod"})
	assert.False(t, IsDev())
}
