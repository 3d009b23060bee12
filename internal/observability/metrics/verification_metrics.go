package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/metrolab/internal/authorization"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"gorm.io/gorm"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

const (
	ReasonNotFound             = "not_found"
	ReasonInvalidRequest       = "invalid_request"
	ReasonPreconditionFailed   = "precondition_failed"
	ReasonConflict             = "conflict"
	ReasonForbidden            = "forbidden"
	ReasonRateLimited          = "rate_limited"
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonUnknown              = "unknown"
)

const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// VerificationMetrics captures verification engine health for dashboards
// and alerting.
type VerificationMetrics struct {
	evaluations       *prometheus.CounterVec
	submissionErrors  *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec
	lockWait          prometheus.Observer
	statusTransitions *prometheus.CounterVec
}

var (
	verificationMetricsOnce sync.Once
	verificationMetrics     *VerificationMetrics
)

// Verification returns the singleton verification metrics registry.
func Verification() *VerificationMetrics {
	return VerificationWithConfig(Config{})
}

// VerificationWithConfig returns the singleton registry using config labels.
func VerificationWithConfig(cfg Config) *VerificationMetrics {
	verificationMetricsOnce.Do(func() {
		verificationMetrics = newVerificationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return verificationMetrics
}

// ResetVerificationMetricsForTest resets the singleton for tests.
func ResetVerificationMetricsForTest() {
	verificationMetricsOnce = sync.Once{}
	verificationMetrics = nil
}

func newVerificationMetrics(registerer prometheus.Registerer, cfg Config) *VerificationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := constLabelsFor(cfg)

	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "metrolab_verification_evaluations_total",
		Help:        "Verification evaluations by comparison rule and outcome.",
		ConstLabels: constLabels,
	}, []string{"rule", "outcome"})
	submissionErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "metrolab_verification_errors_total",
		Help:        "Rejected verification submissions by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	submissionLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "metrolab_verification_duration_seconds",
		Help:        "Verification submission latency including the transaction.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"operation"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "metrolab_equipment_lock_wait_seconds",
		Help:        "Time spent acquiring the equipment row lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})
	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "metrolab_equipment_status_transitions_total",
		Help:        "Equipment status changes driven by verification verdicts.",
		ConstLabels: constLabels,
	}, []string{"to"})

	registerer.MustRegister(
		evaluations,
		submissionErrors,
		submissionLatency,
		lockWait,
		statusTransitions,
	)

	return &VerificationMetrics{
		evaluations:       evaluations,
		submissionErrors:  submissionErrors,
		submissionLatency: submissionLatency,
		lockWait:          lockWait,
		statusTransitions: statusTransitions,
	}
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "metrolab"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// IncEvaluation counts one evaluated verification.
func (m *VerificationMetrics) IncEvaluation(rule string, passed bool) {
	if m == nil || m.evaluations == nil {
		return
	}
	outcome := OutcomeFailed
	if passed {
		outcome = OutcomePassed
	}
	m.evaluations.WithLabelValues(rule, outcome).Inc()
}

// IncError counts a rejected submission with its classification.
func (m *VerificationMetrics) IncError(operation string, err error) {
	if m == nil || err == nil || m.submissionErrors == nil {
		return
	}
	m.submissionErrors.WithLabelValues(operation, ClassifyVerificationError(err)).Inc()
}

func (m *VerificationMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.submissionLatency == nil {
		return
	}
	m.submissionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveLockWait records time spent in SELECT FOR UPDATE on equipment.
func (m *VerificationMetrics) ObserveLockWait(duration time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockWait.Observe(duration.Seconds())
}

func (m *VerificationMetrics) IncStatusTransition(to string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to).Inc()
}

// ClassifyVerificationError maps an error to a low-cardinality reason.
func ClassifyVerificationError(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, verificationdomain.ErrRateLimited) {
		return ReasonRateLimited
	}
	switch {
	case errors.Is(err, verificationdomain.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, verificationdomain.ErrInvalidRequest):
		return ReasonInvalidRequest
	case errors.Is(err, verificationdomain.ErrPreconditionFailed):
		return ReasonPreconditionFailed
	case errors.Is(err, verificationdomain.ErrConflict):
		return ReasonConflict
	case errors.Is(err, verificationdomain.ErrForbidden), isAuthorizationError(err):
		return ReasonForbidden
	}
	if isDBLockTimeout(err) {
		return ReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return ReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return ReasonUniqueViolation
	}
	return ReasonUnknown
}

// IsRetryable reports whether a failed submission may succeed unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return isDBLockTimeout(err) || isSerializationFailure(err)
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001") || hasPGCode(err, "40P01")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isAuthorizationError(err error) bool {
	return errors.Is(err, authorization.ErrForbidden) ||
		errors.Is(err, authorization.ErrInvalidActor) ||
		errors.Is(err, authorization.ErrInvalidRole) ||
		errors.Is(err, authorization.ErrInvalidScope) ||
		errors.Is(err, authorization.ErrTerminalDenied)
}
