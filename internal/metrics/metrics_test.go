package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRPCLabelsOutcome(t *testing.T) {
	RecordRPC("quote", nil)
	RecordRPC("quote", errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(RPCRoundTrips.WithLabelValues("quote", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(RPCRoundTrips.WithLabelValues("quote", "error")))
}

func TestRecordExecutionIncrementsByStatus(t *testing.T) {
	RecordExecution("confirmed")
	assert.Equal(t, float64(1), testutil.ToFloat64(OpportunitiesExecuted.WithLabelValues("confirmed")))
}

func TestRecordCooldownIncrementsByClass(t *testing.T) {
	RecordCooldown("long")
	assert.Equal(t, float64(1), testutil.ToFloat64(TokenCooldowns.WithLabelValues("long")))
}

func TestNewServerDisabledWhenAddrEmpty(t *testing.T) {
	s := NewServer("")
	assert.Nil(t, s)
	assert.NoError(t, s.Start())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestTimerObservesDuration(t *testing.T) {
	timer := NewTimer()
	timer.ObserveSeconds(ScanCycleDuration)
}
