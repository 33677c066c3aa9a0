package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ContractScan/internal/domain/models"
	reqmetrics "ContractScan/internal/service/metrics"
	xhttp "ContractScan/pkg/http"
	pkgkafka "ContractScan/pkg/kafka"
	applogger "ContractScan/pkg/logger"
)

// Request outcomes recorded per origin.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeInvalid = "invalid"
	OutcomeBusy    = "busy"
	OutcomeError   = "error"
)

// Locker grants one worker at a time the right to analyse a contract date.
type Locker interface {
	Lock(ctx context.Context, contract time.Time, ttl time.Duration) (release func(), ok bool, err error)
}

// AnalysisService is the entry point shared by the HTTP API and the Kafka request consumer.
type AnalysisService struct {
	analyzer *ContractAnalyzer
	locker   Locker
	timeout  time.Duration
	l        *applogger.Logger
}

func NewAnalysisService(analyzer *ContractAnalyzer, locker Locker, timeout time.Duration, l *applogger.Logger) *AnalysisService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AnalysisService{analyzer: analyzer, locker: locker, timeout: timeout, l: l}
}

// Run serves a cached report unless Refresh is set, otherwise analyses the date under the
// per-date lock. ErrAnalysisInProgress is returned when another worker holds the lock.
func (s *AnalysisService) Run(ctx context.Context, origin string, req models.AnalyzeRequest) (*models.AnalysisReport, error) {
	started := time.Now()
	report, outcome, err := s.run(ctx, req)
	reqmetrics.ObserveRequest(origin, outcome, started)
	return report, err
}

func (s *AnalysisService) run(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisReport, string, error) {
	contract, err := models.ParseContractDate(req.ContractDate)
	if err != nil {
		return nil, OutcomeInvalid, err
	}
	if !req.Refresh {
		if r, err := s.analyzer.Report(ctx, contract); err == nil {
			return r, OutcomeCached, nil
		}
	}

	if s.locker != nil {
		release, ok, err := s.locker.Lock(ctx, contract, s.timeout)
		switch {
		case err != nil:
			s.l.Warn("analysis lock unavailable, continuing unlocked", applogger.Date("contract_date", contract), applogger.Error(err))
		case !ok:
			return nil, OutcomeBusy, models.ErrAnalysisInProgress
		default:
			defer release()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	report, err := s.analyzer.Analyze(ctx, req.ContractDate)
	if err != nil {
		return nil, OutcomeError, err
	}
	return report, OutcomeOK, nil
}

// Report looks up a finished report by contract date.
func (s *AnalysisService) Report(ctx context.Context, contract time.Time) (*models.AnalysisReport, error) {
	return s.analyzer.Report(ctx, contract)
}

// AnalysisRequestHandler consumes analysis requests from Kafka. Each message is a JSON
// models.AnalyzeRequest; the finished report leaves through the analyzer's publisher.
type AnalysisRequestHandler struct {
	topic   string
	service *AnalysisService
	l       *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)

func NewAnalysisRequestHandler(topic string, service *AnalysisService, l *applogger.Logger) *AnalysisRequestHandler {
	return &AnalysisRequestHandler{topic: topic, service: service, l: l}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

// Handle returns nil when another worker already owns the date, so the message is committed.
func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalyzeRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("decode analysis request: %w", err)
	}
	if err := xhttp.JoinValidation(xhttp.Validate(req)); err != nil {
		return fmt.Errorf("analysis request: %w", err)
	}
	log := h.l.With(applogger.String("contract_date", req.ContractDate), applogger.String("trace_id", pkgkafka.TraceID(ctx)))

	_, err := h.service.Run(ctx, reqmetrics.OriginKafka, req)
	if errors.Is(err, models.ErrAnalysisInProgress) {
		log.Info("analysis request skipped, already running")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("analysis request handled", applogger.Bool("refresh", req.Refresh))
	return nil
}
