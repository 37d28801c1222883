package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterPipelineMetrics_Idempotent(t *testing.T) {
	RegisterPipelineMetrics()
	RegisterPipelineMetrics()

	PipelineRuns.WithLabelValues("searched").Inc()
	if got := testutil.ToFloat64(PipelineRuns.WithLabelValues("searched")); got < 1 {
		t.Errorf("pipeline_runs_total{outcome=searched} = %v", got)
	}

	if err := prometheus.Register(PipelineRuns); err == nil {
		t.Error("expected AlreadyRegisteredError after RegisterPipelineMetrics")
	}
}
