package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nsi_edu_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	body := strings.Join([]string{
		"server:",
		"  mode: test",
		"database:",
		"  driver: sqlite",
		"  path: " + filepath.Join(dir, "nsi.db"),
		"  log_level: silent",
		"log:",
		"  level: warn",
		`  file: ""`,
		"gamification:",
		"  timezone: Europe/Paris",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	return cfg
}

func TestNewAppServesRoutes(t *testing.T) {
	cfg := loadTestConfig(t)
	application, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { application.Close(context.Background()) })

	for _, path := range []string{"/api/health", "/api/badges", "/api/leaderboard", "/metrics"} {
		w := httptest.NewRecorder()
		application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/42/progress", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewAppMigrateOnly(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.MigrateOnly = true
	application, err := NewApp(cfg)
	require.NoError(t, err)
	defer application.Close(context.Background())

	assert.Nil(t, application.Router)
	var badges int64
	require.NoError(t, application.DB.Table("badges").Count(&badges).Error)
	assert.Positive(t, badges)
}
