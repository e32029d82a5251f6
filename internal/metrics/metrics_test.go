package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsIntoRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.RecordLogin(LoginSuccess)
	m.RecordLogin(LoginSuccess)
	m.RecordLogin(LoginProfileError)
	m.ObserveProfileFetch(20*time.Millisecond, nil)
	m.ObserveProfileFetch(5*time.Millisecond, errors.New("boom"))
	m.ObserveRequest("/:user", "200", time.Millisecond)
	m.SetCachedUsers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues(LoginProfileError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.profileFetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.profileFetches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/:user", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cachedUsers))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_logins_total")
	assert.Contains(t, names, "test_profile_fetch_duration_seconds")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordLogin(LoginSuccess)
		m.ObserveProfileFetch(time.Second, nil)
		m.ObserveRequest("/", "200", time.Second)
		m.SetCachedUsers(1)
	})
}
