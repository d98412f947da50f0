package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// OutcomeStatus enumerates the mutually exclusive verification endings.
type OutcomeStatus string

const (
	OutcomeConfirmed        OutcomeStatus = "confirmed"
	OutcomeRejected         OutcomeStatus = "rejected"
	OutcomeTimedOut         OutcomeStatus = "timed_out"
	OutcomeConnectionFailed OutcomeStatus = "connection_failed"
)

// VerificationOutcome is the single result of one verification attempt.
type VerificationOutcome struct {
	Status     OutcomeStatus
	WorkerName string
	RecordID   string
	Confidence float64
	Reason     string
	Elapsed    time.Duration
}

type verifyClient interface {
	VerifyFace(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error)
}

// VerificationService issues one bounded-latency verification call: the
// network request races a fixed timeout and exactly one outcome wins. A
// response arriving after the bound is discarded.
type VerificationService struct {
	client  verifyClient
	timeout time.Duration
	metrics *MetricsService
	logger  *zap.Logger

	// OnTick, when set, receives the elapsed whole seconds once per second
	// while a verification is outstanding. UI feedback only.
	OnTick func(seconds int)
}

// NewVerificationService builds a VerificationService. timeout <= 0 falls
// back to the pipeline default.
func NewVerificationService(client verifyClient, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *VerificationService {
	if timeout <= 0 {
		timeout = models.VerifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		client:  client,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

type verifyResult struct {
	resp *dto.VerifyResponse
	err  error
}

// Verify races the verification request against the timeout. The
// elapsed-seconds ticker stops the instant any outcome is reached; the
// request context is cancelled on timeout so a late response cannot
// produce a second outcome.
func (s *VerificationService) Verify(ctx context.Context, photoURI string, eventType models.EventType, loc models.Location) VerificationOutcome {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so an abandoned request goroutine can still exit.
	resultCh := make(chan verifyResult, 1)
	go func() {
		resp, err := s.client.VerifyFace(reqCtx, dto.VerifyRequest{
			Photo:     photoURI,
			Type:      string(eventType),
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
		})
		resultCh <- verifyResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()
	seconds := 0
	for {
		select {
		case <-ticker.C:
			seconds++
			if s.OnTick != nil {
				s.OnTick(seconds)
			}
		case res := <-resultCh:
			outcome := s.settle(res, time.Since(start))
			s.observe(outcome)
			return outcome
		case <-timer.C:
			cancel() // discard the in-flight request
			outcome := VerificationOutcome{
				Status:  OutcomeTimedOut,
				Elapsed: s.timeout,
			}
			s.observe(outcome)
			return outcome
		}
	}
}

func (s *VerificationService) settle(res verifyResult, elapsed time.Duration) VerificationOutcome {
	if res.err != nil {
		if errors.Is(res.err, appErrors.ErrApplicationRejection) {
			return VerificationOutcome{
				Status:  OutcomeRejected,
				Reason:  appErrors.FromError(res.err).Message,
				Elapsed: elapsed,
			}
		}
		s.logger.Warn("verification transport failure", zap.Error(res.err))
		return VerificationOutcome{
			Status:  OutcomeConnectionFailed,
			Reason:  appErrors.FromError(res.err).Message,
			Elapsed: elapsed,
		}
	}

	return VerificationOutcome{
		Status:     OutcomeConfirmed,
		WorkerName: res.resp.Employee.Name,
		RecordID:   res.resp.Record.ID,
		Confidence: ParseConfidence(res.resp.Verification.Confidence),
		Elapsed:    elapsed,
	}
}

func (s *VerificationService) observe(outcome VerificationOutcome) {
	s.metrics.ObserveVerification(string(outcome.Status), outcome.Elapsed)
}

// ParseConfidence converts the server's percentage string ("87%") into a
// [0,1] fraction. Unparseable input yields 0.
func ParseConfidence(raw string) float64 {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	fraction := value / 100
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}
