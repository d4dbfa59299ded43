package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyOutboxReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: OutboxReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: OutboxReasonDBLockTimeout,
		},
		{
			name: "db",
			err:  gorm.ErrInvalidTransaction,
			want: OutboxReasonDB,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: OutboxReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyOutboxReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestOutboxCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newOutboxMetrics(registry, Config{
		ServiceName: "upkyp",
		Environment: "test",
	})

	metrics.IncDelivered()
	metrics.IncDelivered()
	metrics.IncPruned()
	metrics.SetBacklog(7)

	if got := testutil.ToFloat64(metrics.delivered); got != 2 {
		t.Fatalf("expected delivered count 2, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.pruned); got != 1 {
		t.Fatalf("expected pruned count 1, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.backlog); got != 7 {
		t.Fatalf("expected backlog 7, got %v", got)
	}
}
