package tutormesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/config"
	"github.com/Titouaaaan/tutormesh/content"
	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/engine"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/progress"
)

const lessonText = `Kapitel: 1
Thema: Moien!
Kategorie: Gespréich
Agent(en): Konversatiouns-Agent
Inhalt:
Moien! Wéi geet et?

Kapitel: 1
Thema: Moien!
Kategorie: Liesen
Inhalt:
Gudde Mëtteg, Madame!
`

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	for key, body := range map[string]string{
		core.ProfileKey("u1"):  `{"name":"Anna","level":"A1"}`,
		core.ContentCurriculum: "Kapitel 1: Moien!",
		core.ContentLesson:     lessonText,
	} {
		p := filepath.Join(dir, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	cfg := config.Defaults()
	cfg.Content.Dir = dir
	cfg.Metrics.Namespace = "facade"
	return cfg
}

func TestNew_OfflineSessionCompletes(t *testing.T) {
	progressStore := progress.NewInMemoryStore()
	tm, err := New(context.Background(), offlineConfig(t), func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.ProgressStore = progressStore
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, status, err := tm.RunSync(ctx, core.StartRequest{UserID: "u1", Query: "Kapitel: 1\nThema: Moien!"})
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)
	assert.Equal(t, engine.StatusCompleted, status.Result)

	records, err := progressStore.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "conversational", records[0].AgentRole)
	assert.Equal(t, "reader", records[1].AgentRole)

	rec := httptest.NewRecorder()
	tm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `facade_sessions_total{status="completed"} 1`)
}

func TestNew_WithoutQueryAborts(t *testing.T) {
	tm, err := New(context.Background(), offlineConfig(t), func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.ContentStore = content.NewInMemoryStore(map[string]string{core.ProfileKey("u1"): "{}"})
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Close() })

	_, status, err := tm.RunSync(context.Background(), core.StartRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusAborted, status.Result)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Progress.Backend = "mongo"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Defaults()
	cfg.Content.Dir = filepath.Join(t.TempDir(), "missing")
	_, err = New(context.Background(), cfg, func(o *Options) { o.Logger = logging.NoOpLogger{} })
	assert.Error(t, err)
}
