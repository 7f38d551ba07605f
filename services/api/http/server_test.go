package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/rtwqms-watcher/internal/logging"
	"github.com/02loveslollipop/rtwqms-watcher/services/api/config"
	"github.com/02loveslollipop/rtwqms-watcher/services/api/exports"
)

const exportCSV = `stationId,timestamp,timestampDate,value,unit,parameterNo,parameterName
1520,2024-03-01T12:30:45Z,2024-03-01T12:30:45Z,3.4,m above MSL,RS,Water Level
1521,2024-03-01T12:30:45Z,2024-03-01T12:30:45Z,6.1,mg/l,O2,Dissolved Oxygen
`

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error string          `json:"error"`
}

func newTestServer(t *testing.T, token string, files map[string]string) *Server {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	store, err := exports.New(dir)
	require.NoError(t, err)
	return New(config.Config{ExportDir: dir, Port: 0, BearerToken: token}, store, logging.Discard())
}

func do(t *testing.T, srv *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListExports(t *testing.T) {
	srv := newTestServer(t, "", map[string]string{
		"water_data_2024-03-01_18-05.csv": exportCSV,
		"water_data_2024-03-01_19-05.csv": exportCSV,
	})

	rec := do(t, srv, http.MethodGet, "/api/v1/exports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	env := decode(t, rec)
	var list []exports.Export
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "water_data_2024-03-01_19-05.csv", list[0].Name)
	assert.EqualValues(t, 2, env.Meta["count"])
}

func TestLatestExport(t *testing.T) {
	t.Run("no exports", func(t *testing.T) {
		srv := newTestServer(t, "", nil)
		rec := do(t, srv, http.MethodGet, "/api/v1/exports/latest", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("newest export rows", func(t *testing.T) {
		srv := newTestServer(t, "", map[string]string{
			"water_data_2024-03-01_18-05.csv": "stationId\n1\n",
			"water_data_2024-03-01_19-05.csv": exportCSV,
		})
		rec := do(t, srv, http.MethodGet, "/api/v1/exports/latest", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		env := decode(t, rec)
		var readings []exports.Reading
		require.NoError(t, json.Unmarshal(env.Data, &readings))
		require.Len(t, readings, 2)
		assert.Equal(t, "Water Level", readings[0].ParameterName)
		assert.Equal(t, "water_data_2024-03-01_19-05.csv", env.Meta["name"])
		assert.NotEmpty(t, env.Meta["exported_at"])
	})
}

func TestGetExport(t *testing.T) {
	srv := newTestServer(t, "", map[string]string{"water_data_2024-03-01_18-05.csv": exportCSV})

	rec := do(t, srv, http.MethodGet, "/api/v1/exports/water_data_2024-03-01_18-05.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.EqualValues(t, 2, env.Meta["count"])

	rec = do(t, srv, http.MethodGet, "/api/v1/exports/water_data_2024-03-01_18-06.csv", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/exports/secrets.txt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadExport(t *testing.T) {
	srv := newTestServer(t, "", map[string]string{"water_data_2024-03-01_18-05.csv": exportCSV})

	rec := do(t, srv, http.MethodGet, "/api/v1/exports/water_data_2024-03-01_18-05.csv/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "water_data_2024-03-01_18-05.csv")
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, exportCSV, string(body))

	rec = do(t, srv, http.MethodGet, "/api/v1/exports/..%2Fetc%2Fpasswd/download", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "s3cret", map[string]string{"water_data_2024-03-01_18-05.csv": exportCSV})

	rec := do(t, srv, http.MethodGet, "/api/v1/exports", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/exports", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/exports", http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := do(t, srv, http.MethodOptions, "/api/v1/exports", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, "", map[string]string{"water_data_2024-03-01_18-05.csv": exportCSV})

	do(t, srv, http.MethodGet, "/api/v1/exports", nil)
	do(t, srv, http.MethodGet, "/api/v1/exports/water_data_2024-03-01_18-05.csv/download", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `rtwqms_api_requests_total{method="GET",route="/api/v1/exports",status="200"} 1`)
	assert.Contains(t, body, "rtwqms_api_export_downloads_total 1")
}
