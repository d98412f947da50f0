package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.ServerConfig{BaseURL: server.URL}, nil, nil)
}

func TestVerifyFaceSuccess(t *testing.T) {
	var gotPath, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")

		var req dto.VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "entrada", req.Type)
		assert.NotEmpty(t, req.Photo)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"record":{"id":"r1"},"employee":{"name":"Ana Soto"},"verification":{"confidence":"87%"}}`))
	})

	resp, err := client.VerifyFace(context.Background(), dto.VerifyRequest{Photo: "data:image/jpeg;base64,xx", Type: "entrada"})
	require.NoError(t, err)
	assert.Equal(t, "/verify-attendance/", gotPath)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "r1", resp.Record.ID)
	assert.Equal(t, "Ana Soto", resp.Employee.Name)
	assert.Equal(t, "87%", resp.Verification.Confidence)
}

func TestVerifyFaceRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"no match found"}`))
	})

	_, err := client.VerifyFace(context.Background(), dto.VerifyRequest{Photo: "p", Type: "salida"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationRejection))
	assert.Contains(t, err.Error(), "no match found")
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // deliberately unreachable

	client := NewClient(config.ServerConfig{BaseURL: server.URL}, nil, nil)
	_, err := client.ListEmployees(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransportFailure))
}

func TestUndecodableBodyIsTransportFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream error</html>"))
	})

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransportFailure))
}

func TestSyncOfflineRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req dto.SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.OfflineRecords, 2)
		assert.Equal(t, "entrada", req.OfflineRecords[0].Type)

		_, _ = w.Write([]byte(`{"success":true,"synced_count":2}`))
	})

	resp, err := client.SyncOfflineRecords(context.Background(), []dto.OfflineRecord{
		{Type: "entrada", Timestamp: "2026-08-30T08:00:00Z"},
		{Type: "salida", Timestamp: "2026-08-30T17:00:00Z", Photo: "data:image/jpeg;base64,yy"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SyncedCount)
}

func TestDeleteEmployeePath(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	require.NoError(t, client.DeleteEmployee(context.Background(), "w-9"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/employees/w-9/delete/", gotPath)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "attendance-history", endpointLabel("attendance-history/abc-123/?limit=5"))
	assert.Equal(t, "employees", endpointLabel("employees/"))
}
