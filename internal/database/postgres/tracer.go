package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("jobmatch/database/postgres")

type queryStartKey struct{}

type queryStart struct {
	at   time.Time
	verb string
	sql  string
	span trace.Span
}

// queryTracer implements pgx.QueryTracer. Every statement gets a client span
// and a duration sample; statements slower than slow are logged.
type queryTracer struct {
	log  *zap.Logger
	slow time.Duration
}

func newQueryTracer(log *zap.Logger, slow time.Duration) *queryTracer {
	return &queryTracer{log: logger.OrNop(log), slow: slow}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	verb := statementVerb(data.SQL)
	ctx, span := tracer.Start(ctx, "postgres."+strings.ToLower(verb), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", verb),
	)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), verb: verb, sql: data.SQL, span: span})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	st, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	defer st.span.End()

	elapsed := time.Since(st.at)
	outcome := "ok"
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		outcome = "error"
		st.span.RecordError(data.Err)
		st.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		st.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	metrics.DBQueryDuration.WithLabelValues(st.verb, outcome).Observe(elapsed.Seconds())

	if t.slow > 0 && elapsed >= t.slow {
		t.log.Warn("slow query",
			zap.String("verb", st.verb),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", compactSQL(st.sql, 200)),
		)
	}
}

// statementVerb returns the upper-cased leading keyword of a statement.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	verb := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	if verb == "" {
		return "UNKNOWN"
	}
	return verb
}

func compactSQL(sql string, max int) string {
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
