package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"gorm.io/gorm"
)

// Config supplies constant labels shared by every collector.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "pressline"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonCanceled             = "canceled"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonConcurrentUpdate     = "concurrent_update"
	ReasonBusinessRule         = "business_rule"
	ReasonPanic                = "panic"
	ReasonUnknown              = "unknown"
)

// ErrPassPanicked marks a reconciliation pass that recovered from a panic.
var ErrPassPanicked = errors.New("pass_panicked")

// ClassifyReason maps an error to a low-cardinality label value.
func ClassifyReason(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrPassPanicked):
		return ReasonPanic
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, subscriptiondomain.ErrConcurrentUpdate):
		return ReasonConcurrentUpdate
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ReasonUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ReasonDBLockTimeout
		case "40001", "40P01":
			return ReasonSerializationFailure
		case "23505":
			return ReasonUniqueViolation
		}
	}

	switch {
	case errors.Is(err, subscriptiondomain.ErrInvalidState),
		errors.Is(err, subscriptiondomain.ErrNotActivatable),
		errors.Is(err, subscriptiondomain.ErrNotFound):
		return ReasonBusinessRule
	}
	return ReasonUnknown
}

func register[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
