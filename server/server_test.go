package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/clock"
	"github.com/xero1425/xerobot/history"
	"github.com/xero1425/xerobot/logging"
	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/server/cron"
	"github.com/xero1425/xerobot/server/handlers"
	"github.com/xero1425/xerobot/server/types"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

const testConfig = `
loop:
  period: 20ms
settings: %s
monitoring:
  mode: "off"
server:
  listener:
    addr: "127.0.0.1:0"
  cron:
    - jobs: [summary]
      schedule: "@every 1m"
`

func writeConfig(t *testing.T, dir, settingsDoc string) string {
	t.Helper()
	settingsPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte(settingsDoc), 0o600))
	path := filepath.Join(dir, "config.yaml")
	doc := bytes.Replace([]byte(testConfig), []byte("%s"), []byte(settingsPath), 1)
	require.NoError(t, os.WriteFile(path, doc, 0o600))
	return path
}

func emptyMode(name string) auto.Builder {
	return auto.Builder{Name: name, Build: func(env *action.Env) (*auto.Mode, error) {
		return auto.NewMode(env, name), nil
	}}
}

func newTestRobot(t *testing.T) *robot.Robot {
	t.Helper()
	env := action.NewEnv(action.WithLogger(quietLogger()), action.WithClock(clock.NewManualClock()))
	root := subsystem.New(env, "testbot")
	broken := auto.Builder{Name: "broken", Build: func(*action.Env) (*auto.Mode, error) {
		return nil, errors.New("no path")
	}}
	ctrl := auto.NewController(env,
		[]auto.Builder{emptyMode("score"), broken},
		auto.WithTestMode(emptyMode("pit test")),
		auto.WithLogger(quietLogger()),
	)
	return robot.New(env, root, ctrl)
}

type testServer struct {
	*Server
	mux      *http.ServeMux
	robot    *robot.Robot
	selector *auto.StaticSelector
	settings *settings.Settings
	dir      string
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	dir := t.TempDir()
	path := writeConfig(t, dir, "arm:\n  score: 40\n")

	rb := newTestRobot(t)
	sel := auto.NewStaticSelector(0)
	st := settings.New()
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithSelector(sel),
		WithSettings(st),
	}, opts...)

	srv, err := New(path, rb, opts...)
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.registerRoutes(mux)
	return &testServer{Server: srv, mux: mux, robot: rb, selector: sel, settings: st, dir: dir}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func TestNew(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, "127.0.0.1:0", ts.addr)
	assert.Equal(t, 20*time.Millisecond, ts.Config().Loop.Period)
	assert.Equal(t, time.Second, ts.healthAge())
	require.NotNil(t, ts.NextRun(), "cron triggers come from the config file")

	v, err := ts.settings.Double("arm.score")
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)

	assert.Equal(t, "testbot", ts.Properties().Robot)
}

func TestNew_Options(t *testing.T) {
	ts := newTestServer(t, WithListenAddr(":9999"), WithCron([]cron.TriggerSpec{}))
	assert.Equal(t, ":9999", ts.addr)
	assert.Nil(t, ts.NextRun(), "an empty schedule disables cron")
}

func TestNew_BadConfig(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"), newTestRobot(t), WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "settings.yaml"), []byte("arm:\n  score: 55\n"), 0o600))
	w := ts.do(http.MethodPost, "/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res types.ReloadResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, filepath.Join(ts.dir, "settings.yaml"), res.SettingsPath)
	assert.Equal(t, 1, res.SettingKeys)

	v, err := ts.settings.Double("arm.score")
	require.NoError(t, err)
	assert.Equal(t, 55.0, v)

	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "settings.yaml"), []byte("arm: [broken"), 0o600))
	w = ts.do(http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"file":"settings"`)
	v, err = ts.settings.Double("arm.score")
	require.NoError(t, err)
	assert.Equal(t, 55.0, v)
}

func TestHealthAndStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = ts.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ts.robot.Tick()

	w = ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.APIStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "disabled", resp.Robot.Mode)
	assert.Equal(t, "testbot", resp.Server.Robot)
	assert.True(t, resp.NextRun.Scheduled)
}

func TestSelectAutoMode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantSel  int
	}{
		{name: "available", body: `{"index": 0}`, wantCode: http.StatusAccepted, wantSel: 0},
		{name: "test routine", body: `{"index": -1}`, wantCode: http.StatusAccepted, wantSel: auto.TestModeIndex},
		{name: "unavailable", body: `{"index": 1}`, wantCode: http.StatusConflict, wantSel: 5},
		{name: "unknown", body: `{"index": 7}`, wantCode: http.StatusNotFound, wantSel: 5},
		{name: "missing index", body: `{}`, wantCode: http.StatusBadRequest, wantSel: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.selector.Set(5)

			w := ts.do(http.MethodPost, "/api/automodes/select", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantSel, ts.SelectedAutoMode())
		})
	}
}

func TestSelectAutoMode_Fixed(t *testing.T) {
	ts := newTestServer(t)
	ts.Server.selector = nil
	assert.ErrorIs(t, ts.SelectAutoMode(0), ErrFixedSelection)
	assert.Equal(t, 0, ts.SelectedAutoMode())
}

func TestAutoModes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/automodes", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.AutoModesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Modes, 3)
	assert.Equal(t, "score", resp.Modes[0].Name)
	assert.False(t, resp.Modes[1].Available)
	assert.Equal(t, auto.TestModeIndex, resp.Modes[2].Index)
}

func TestRequestMode(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/mode", `{"mode": "teleop"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	ts.robot.Tick()
	assert.Equal(t, subsystem.Teleop, ts.robot.Mode())
}

func TestLogsAndHistory(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/logs", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "capture disabled")
	w = ts.do(http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	collector := logging.NewLogCollector(10)
	collector.AddLog("arm", logging.LogEntry{Level: "INFO", Message: "goto started"})
	store := history.NewMemoryStore(5)
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(history.Period{Mode: "teleop", StartedAt: start, EndedAt: start.Add(time.Minute)}))

	ts = newTestServer(t, WithLogCollector(collector), WithHistory(store))

	w = ts.do(http.MethodGet, "/api/logs?subsystem=arm", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []logging.LogEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "goto started", logs[0].Message)

	w = ts.do(http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var periods []history.Period
	require.NoError(t, json.NewDecoder(w.Body).Decode(&periods))
	require.Len(t, periods, 1)
	assert.Equal(t, "teleop", periods[0].Mode)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts = newTestServer(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("loop_ticks_total 1\n"))
	})))
	w = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loop_ticks_total")
}

func TestConfigRoute(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "period: 20ms")

	w = ts.do(http.MethodGet, "/config?view=settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "arm.score: 40")
}
