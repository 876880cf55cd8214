package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRemotePersist(ResultSuccess, 0.1)
		m.ObserveLocalSave(nil)
		m.ObserveMerge(MergeRemote)
		m.ObserveCarryForward(3)
	})
}

func TestObservations(t *testing.T) {
	m := New()

	m.ObserveRemotePersist(ResultSuccess, 0.1)
	m.ObserveRemotePersist(ResultTimeout, 0.8)
	m.ObserveRemotePersist(ResultTimeout, 0.8)
	m.ObserveLocalSave(errors.New("disk full"))
	m.ObserveMerge(MergeImport)
	m.ObserveCarryForward(2)
	m.ObserveCarryForward(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemotePersistTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemotePersistTotal.WithLabelValues(ResultTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LocalSaveTotal.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MergeTotal.WithLabelValues(MergeImport)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CarryForwardTasks))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveMerge(MergeRemote)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `daybook_merge_total{kind="remote"} 1`)
}
