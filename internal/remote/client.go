// Package remote implements the HTTP+JSON client for the attendance
// verification/recording service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// Observer receives per-request timing observations. Implemented by the
// metrics service; nil is allowed.
type Observer interface {
	ObserveRemoteRequest(endpoint, status string, duration time.Duration)
}

// Client talks to the remote service. All methods map transport errors to
// ErrTransportFailure and success:false bodies to ErrApplicationRejection
// carrying the server message.
type Client struct {
	baseURL  string
	client   *http.Client
	observer Observer
	logger   *zap.Logger
}

// NewClient builds a Client from server config.
func NewClient(cfg config.ServerConfig, observer Observer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		observer: observer,
		logger:   logger,
	}
}

// ListEmployees fetches the server-side worker roster.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Worker, error) {
	var out dto.EmployeesResponse
	if err := c.do(ctx, http.MethodGet, "employees/", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return out.Employees, nil
}

// VerifyFace submits one photo for matching against enrolled faces.
func (c *Client) VerifyFace(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error) {
	var out dto.VerifyResponse
	if err := c.do(ctx, http.MethodPost, "verify-attendance/", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return &out, nil
}

// RegisterFace enrolls reference photos for an existing worker.
func (c *Client) RegisterFace(ctx context.Context, employeeID string, photos []string) error {
	req := dto.RegisterFaceRequest{EmployeeID: employeeID, Photos: photos}
	var out dto.GenericResponse
	if err := c.do(ctx, http.MethodPost, "register-employee/", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return rejection(out.Message)
	}
	return nil
}

// MarkAttendance records a manually evidenced event.
func (c *Client) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	var out dto.MarkAttendanceResponse
	if err := c.do(ctx, http.MethodPost, "mark-attendance/", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return &out, nil
}

// CreateEmployee creates a worker and enrolls its face in one call.
func (c *Client) CreateEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.CreateEmployeeResponse, error) {
	var out dto.CreateEmployeeResponse
	if err := c.do(ctx, http.MethodPost, "create-employee/", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return &out, nil
}

// DeleteEmployee removes a worker server-side.
func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	var out dto.GenericResponse
	path := fmt.Sprintf("employees/%s/delete/", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return rejection(out.Message)
	}
	return nil
}

// SyncOfflineRecords pushes the entire offline queue as one batch.
func (c *Client) SyncOfflineRecords(ctx context.Context, records []dto.OfflineRecord) (*dto.SyncResponse, error) {
	var out dto.SyncResponse
	if err := c.do(ctx, http.MethodPost, "sync-offline-records/", dto.SyncRequest{OfflineRecords: records}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return &out, nil
}

// AttendanceHistory fetches server-side history, optionally scoped to one
// worker. limit <= 0 leaves paging to the server.
func (c *Client) AttendanceHistory(ctx context.Context, employeeID string, limit int) ([]models.AttendanceRecord, error) {
	path := "attendance-history/"
	if employeeID != "" {
		path = fmt.Sprintf("attendance-history/%s/", employeeID)
	}
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out dto.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, rejection(out.Message)
	}
	return out.Records, nil
}

// Health probes the service health endpoint; it doubles as the internet
// half of the connectivity check.
func (c *Client) Health(ctx context.Context) error {
	var out dto.GenericResponse
	return c.do(ctx, http.MethodGet, "health/", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	endpoint := endpointLabel(path)
	if err != nil {
		c.observe(endpoint, "error", duration)
		c.logger.Warn("remote request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("duration", duration),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status, appErrors.ErrTransportFailure.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.observe(endpoint, fmt.Sprintf("%d", resp.StatusCode), duration)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status, "read response")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A non-2xx with an undecodable body counts as transport failure.
		return appErrors.Wrap(err, appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status,
			fmt.Sprintf("undecodable response (status %d)", resp.StatusCode))
	}
	return nil
}

func (c *Client) observe(endpoint, status string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRemoteRequest(endpoint, status, d)
	}
}

// endpointLabel strips path parameters and query strings so metrics stay
// low-cardinality.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return "/"
	}
	return parts[0]
}

func rejection(message string) error {
	if message == "" {
		return appErrors.ErrApplicationRejection
	}
	return appErrors.Clone(appErrors.ErrApplicationRejection, message)
}
