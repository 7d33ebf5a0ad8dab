package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveConnectCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("postgresql", OutcomeError))
	ObserveConnect("postgresql", errors.New("refused"))
	after := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("postgresql", OutcomeError))
	if after-before != 1 {
		t.Fatalf("connect error counter delta = %v", after-before)
	}
}

func TestObserveQuerySeparatesEmptyFromError(t *testing.T) {
	emptyBefore := testutil.ToFloat64(queriesTotal.WithLabelValues(OutcomeEmpty))
	errorBefore := testutil.ToFloat64(queriesTotal.WithLabelValues(OutcomeError))

	ObserveQuery(0, nil)
	ObserveQuery(0, errors.New("syntax error"))

	if got := testutil.ToFloat64(queriesTotal.WithLabelValues(OutcomeEmpty)) - emptyBefore; got != 1 {
		t.Fatalf("empty delta = %v", got)
	}
	if got := testutil.ToFloat64(queriesTotal.WithLabelValues(OutcomeError)) - errorBefore; got != 1 {
		t.Fatalf("error delta = %v", got)
	}
}

func TestObserveTranslationAndSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(translationsTotal.WithLabelValues("ollama", OutcomeOK))
	ObserveTranslation("ollama", 120*time.Millisecond, nil)
	if got := testutil.ToFloat64(translationsTotal.WithLabelValues("ollama", OutcomeOK)) - before; got != 1 {
		t.Fatalf("translation delta = %v", got)
	}

	SetSessionConnected(true)
	if got := testutil.ToFloat64(sessionConnected); got != 1 {
		t.Fatalf("session gauge = %v", got)
	}
	SetSessionConnected(false)
	if got := testutil.ToFloat64(sessionConnected); got != 0 {
		t.Fatalf("session gauge = %v", got)
	}
}
