package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsChecksAndExits(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.CheckCompleted(workflow.CheckML, workflow.OutcomeWarning, 120*time.Millisecond)
	c.CheckCompleted(workflow.CheckLLM, workflow.OutcomeSafe, 2*time.Second)
	c.CheckCompleted(workflow.CheckML, workflow.OutcomeWarning, 80*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(c.checks.WithLabelValues("ml", "warning")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.checks.WithLabelValues("llm", "safe")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.durations))

	c.Finished(model.Run{
		FinalStatus: model.StatusMLWarning,
		Exit:        model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSkipped},
	})
	c.Finished(model.Run{
		FinalStatus: model.StatusSafe,
		Exit:        model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSafe},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(c.exits.WithLabelValues("confirmation", "skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.bypasses.WithLabelValues("ml_warning")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.bypasses))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.Finished(model.Run{Exit: model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonCancelled}})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vigil_workflow_exits_total{kind="transfer_form",reason="cancelled"} 1`)
}
