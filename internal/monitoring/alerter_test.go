package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/config"
	"github.com/sells-group/crm-sync/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestAlerter_EvaluateRun_Complete(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	alerts := a.EvaluateRun(&model.Run{
		ID:      "run-1",
		Status:  model.RunStatusComplete,
		Summary: &model.RunSummary{Updates: 3},
	})
	assert.Empty(t, alerts)
	assert.Empty(t, a.EvaluateRun(nil))
}

func TestAlerter_EvaluateRun_Failed(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	alerts := a.EvaluateRun(&model.Run{
		ID:      "run-2",
		Trigger: "webhook",
		Status:  model.RunStatusFailed,
		Error:   "syncer: incomplete fetch (People: timeout)",
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailed, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Equal(t, "run-2", alerts[0].RunID)
	assert.Contains(t, alerts[0].Message, "webhook")
	assert.Contains(t, alerts[0].Message, "incomplete fetch")
}

func TestAlerter_EvaluateRun_Incomplete(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	alerts := a.EvaluateRun(&model.Run{
		ID:     "run-3",
		Status: model.RunStatusComplete,
		Summary: &model.RunSummary{
			Incomplete: []model.EntityType{model.EntityPerson, model.EntityJob},
		},
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertIncompleteFetch, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "person, job")
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	alerts := a.Evaluate(&Snapshot{Complete: 6, Failed: 4, FailRate: 0.4, LookbackRuns: 20})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_BelowThreshold(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})
	assert.Empty(t, a.Evaluate(&Snapshot{Complete: 8, Failed: 2, FailRate: 0.2}))
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.1})
	// Only 3 finished runs, below the minimum.
	assert.Empty(t, a.Evaluate(&Snapshot{Complete: 1, Failed: 2, FailRate: 0.666}))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailed, Severity: "high", Message: "one"},
		{Type: AlertIncompleteFetch, Severity: "medium", Message: "two"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_NoURLOrAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailed}}))

	a = NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailed}}))
}

func TestAlerter_Notify(t *testing.T) {
	var got Alert
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	a.Notify(context.Background(), &model.Run{ID: "run-9", Status: model.RunStatusFailed, Error: "boom"})

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, AlertRunFailed, got.Type)
	assert.Equal(t, "run-9", got.RunID)
}
