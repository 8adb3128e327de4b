package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/observability"
	"lab-production-engine/internal/service"
)

type dispatcherFixture struct {
	lab       *fakeLab
	publisher *fakePublisher
	archive   *fakeArchive
	metrics   *observability.Metrics
	d         *service.Dispatcher
}

func newDispatcherFixture(lab *fakeLab) *dispatcherFixture {
	fx := &dispatcherFixture{
		lab:       lab,
		publisher: &fakePublisher{},
		archive:   &fakeArchive{},
		metrics:   observability.NewMetrics(prometheus.NewRegistry()),
	}
	fx.d = service.NewDispatcher(service.DispatcherDeps{
		Optimizer:  newOptimizer(lab, nil),
		Monitor:    newMonitor(lab),
		Forecaster: newForecaster(lab),
		Publisher:  fx.publisher,
		Archive:    fx.archive,
		Metrics:    fx.metrics,
	})
	return fx
}

func TestDispatch_UnknownOperation(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{})

	_, err := fx.d.Dispatch(context.Background(), entity.RunKind("reboot"), nil)
	assert.ErrorIs(t, err, service.ErrUnknownOperation)
	assert.Empty(t, fx.publisher.msgs)
}

func TestDispatch_MalformedInputIsRejected(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{})

	_, err := fx.d.Dispatch(context.Background(), entity.RunForecast, json.RawMessage(`{"horizon_days":`))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = fx.d.Dispatch(context.Background(), entity.RunForecast, json.RawMessage(`{"horizon_days":0.5}`))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestDispatch_ForecastDecodesInputAndPublishes(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{materials: []entity.Material{material("titanium", 0, 10)}})

	out, err := fx.d.Dispatch(context.Background(), entity.RunForecast, json.RawMessage(`{"horizon_days":7}`))
	require.NoError(t, err)

	report, ok := out.(*entity.ForecastReport)
	require.True(t, ok)
	assert.Equal(t, 7, report.HorizonDays)

	require.Len(t, fx.publisher.msgs, 1)
	assert.Equal(t, service.ChannelForecasts, fx.publisher.msgs[0].channel)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.MaterialsAtRisk))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.InvocationsTotal.WithLabelValues("forecast", "success")))
}

func TestDispatch_NullInputUsesDefaults(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{})

	out, err := fx.d.Dispatch(context.Background(), entity.RunForecast, json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, service.DefaultHorizonDays, out.(*entity.ForecastReport).HorizonDays)
}

func TestDispatch_OptimizeFailureCountsError(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{jobsErr: errors.New("down")})

	_, err := fx.d.Dispatch(context.Background(), entity.RunOptimize, nil)
	require.Error(t, err)

	assert.Empty(t, fx.publisher.msgs)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.InvocationsTotal.WithLabelValues("optimize", "error")))
}

func TestDispatch_MonitorArchivesHighAndCriticalOnly(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{
		jobs:      oldPending(6),
		materials: []entity.Material{material("A", 2, 10), material("C", 8, 10)},
	})

	out, err := fx.d.Dispatch(context.Background(), entity.RunMonitor, nil)
	require.NoError(t, err)
	report := out.(*entity.MonitorReport)

	assert.Len(t, fx.archive.alerts, len(report.Alerts))
	for _, a := range fx.archive.alerts {
		assert.GreaterOrEqual(t, a.Severity.Rank(), entity.SeverityHigh.Rank())
	}
	require.Len(t, fx.publisher.msgs, 1)
	assert.Equal(t, service.ChannelAlerts, fx.publisher.msgs[0].channel)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.AlertsTotal.WithLabelValues("critical_shortage", "critical")))
}

func TestDispatch_CollaboratorFailuresAreSwallowed(t *testing.T) {
	fx := newDispatcherFixture(&fakeLab{materials: []entity.Material{material("A", 2, 10)}})
	fx.publisher.err = errors.New("redis down")
	fx.archive.err = errors.New("pg down")

	report := fx.d.Analyze(context.Background())
	assert.Len(t, report.Alerts, 1)

	res, err := fx.d.Optimize(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
}
