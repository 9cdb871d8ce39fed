package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	now := time.Unix(0, 0)
	breaker := resilience.NewBreaker(2, 0.5, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	now = now.Add(2 * time.Minute)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerMetrics(t *testing.T) {
	resilience.BreakerState.Reset()
	resilience.BreakerOpenedTotal.Reset()

	breaker := resilience.NewBreaker(1, 0.5, time.Hour).WithTarget("viacep-metrics")
	ctx := context.Background()
	err := breaker.Execute(ctx, func(context.Context) error { return errors.New("down") })
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("viacep-metrics")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("viacep-metrics")))
	require.ErrorIs(t, breaker.Execute(ctx, func(context.Context) error { return nil }), resilience.ErrOpenCircuit)
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-(base*2/5))
	require.LessOrEqual(t, d, base*2+(base*2/5))
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{
		Client:      srv.Client(),
		Target:      "test",
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		Timeout:     time.Second,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestHTTPClientReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{Client: resilience.NewTracedClient(time.Second)}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := cl.Do(context.Background(), req)
	var statusErr *resilience.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestBreakerAdmitsSingleHalfOpenProbe(t *testing.T) {
	now := time.Unix(0, 0)
	var seen []string
	breaker := resilience.NewBreaker(1, 0.5, time.Second).WithClock(func() time.Time { return now })
	breaker.OnStateChange = func(_ string, from, to resilience.State) {
		seen = append(seen, from.String()+">"+to.String())
	}
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.Zero(t, breaker.Counts().Requests)

	now = now.Add(time.Second)
	require.True(t, breaker.Allow(ctx))
	require.False(t, breaker.Allow(ctx), "second call must wait for the probe")

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.Equal(t, []string{"closed>open", "open>half_open", "half_open>open"}, seen)
}

func TestBreakerCountsStayBounded(t *testing.T) {
	breaker := resilience.NewBreaker(4, 0.9, time.Minute)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		breaker.Report(ctx, i%5 != 0)
	}
	require.Equal(t, resilience.Closed, breaker.State())
	require.LessOrEqual(t, breaker.Counts().Requests, 8)
}
