package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/service"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

type statusReporterMock struct {
	status    models.StatusSnapshot
	statusErr error
	history   []models.AttendanceRecord
}

func (m *statusReporterMock) Status(ctx context.Context) (models.StatusSnapshot, error) {
	return m.status, m.statusErr
}

func (m *statusReporterMock) History(ctx context.Context) ([]models.AttendanceRecord, error) {
	return m.history, nil
}

func newStatusRouter(reporter StatusReporter, metrics *service.MetricsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewStatusHandler(reporter, metrics).Register(r)
	return r
}

func TestStatusHandlerHealth(t *testing.T) {
	r := newStatusRouter(&statusReporterMock{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusHandlerStatus(t *testing.T) {
	reporter := &statusReporterMock{
		status: models.StatusSnapshot{
			Online:       true,
			QueueDepth:   3,
			HistoryCount: 7,
			SelectedWorker: &models.Worker{
				ID:   "w1",
				Name: "Ana Soto",
			},
		},
	}
	r := newStatusRouter(reporter, service.NewMetricsService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Agent    models.StatusSnapshot  `json:"agent"`
			Counters models.MetricsSnapshot `json:"counters"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Agent.Online)
	assert.Equal(t, 3, body.Data.Agent.QueueDepth)
	require.NotNil(t, body.Data.Agent.SelectedWorker)
	assert.Equal(t, "Ana Soto", body.Data.Agent.SelectedWorker.Name)
}

func TestStatusHandlerStatusError(t *testing.T) {
	reporter := &statusReporterMock{
		statusErr: appErrors.ErrInternal,
	}
	r := newStatusRouter(reporter, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusHandlerHistory(t *testing.T) {
	reporter := &statusReporterMock{
		history: []models.AttendanceRecord{
			{ID: "r1", WorkerName: "Ana Soto", EventType: models.EventEntrance},
		},
	}
	r := newStatusRouter(reporter, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/history", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Count   int                       `json:"count"`
			Records []models.AttendanceRecord `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Count)
	require.Len(t, body.Data.Records, 1)
	assert.Equal(t, "Ana Soto", body.Data.Records[0].WorkerName)
}

func TestStatusHandlerPrometheus(t *testing.T) {
	r := newStatusRouter(&statusReporterMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}

func TestStatusHandlerPrometheusUnavailable(t *testing.T) {
	r := newStatusRouter(&statusReporterMock{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
