package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart operations by kind.
	CartMutationsTotal *prometheus.CounterVec
	// CouponApplyTotal counts coupon applications by outcome.
	CouponApplyTotal *prometheus.CounterVec
	// PixPayloadTotal counts generated payment codes by outcome.
	PixPayloadTotal *prometheus.CounterVec
	// PixSessionExpiredTotal counts payment countdowns that ran out.
	PixSessionExpiredTotal prometheus.Counter
	// CEPLookupTotal counts postal-code lookups by outcome.
	CEPLookupTotal *prometheus.CounterVec
	// CEPLookupLatency records lookup latency in milliseconds.
	CEPLookupLatency prometheus.Histogram
	// CheckoutStepTotal counts wizard transitions by destination step.
	CheckoutStepTotal *prometheus.CounterVec
	// CheckoutCompletedTotal counts finished orders by payment method.
	CheckoutCompletedTotal *prometheus.CounterVec
	// AuthEventsTotal counts account operations by kind and outcome.
	AuthEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})
		CouponApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_apply_total",
			Help:      "Count of coupon applications by code and result.",
		}, []string{"code", "result"})
		PixPayloadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pix_payload_total",
			Help:      "Count of generated PIX payloads by result.",
		}, []string{"result"})
		PixSessionExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pix_session_expired_total",
			Help:      "Number of PIX countdowns that expired before confirmation.",
		})
		CEPLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cep_lookup_total",
			Help:      "Count of postal code lookups by result.",
		}, []string{"result"})
		CEPLookupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cep_lookup_duration_ms",
			Help:      "Latency for postal code lookups in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		CheckoutStepTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_step_total",
			Help:      "Count of checkout wizard transitions by destination step.",
		}, []string{"step"})
		CheckoutCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_completed_total",
			Help:      "Count of completed checkouts by payment method.",
		}, []string{"method"})
		AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Count of account operations by event and result.",
		}, []string{"event", "result"})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CouponApplyTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponApplyTotal = v
			}
		})
		mustRegisterCollector(reg, PixPayloadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PixPayloadTotal = v
			}
		})
		mustRegisterCollector(reg, PixSessionExpiredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PixSessionExpiredTotal = v
			}
		})
		mustRegisterCollector(reg, CEPLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CEPLookupTotal = v
			}
		})
		mustRegisterCollector(reg, CEPLookupLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CEPLookupLatency = v
			}
		})
		mustRegisterCollector(reg, CheckoutStepTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutStepTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, AuthEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AuthEventsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

// The helpers below are no-ops until MustRegisterDomainMetrics has run.

func IncCartMutation(op string) {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(op).Inc()
	}
}

// CouponUnknown labels attempts with a code missing from the table, keeping
// typed input out of the series set.
const CouponUnknown = "unknown"

func IncCouponApply(code, result string) {
	if result == "invalid" || code == "" {
		code = CouponUnknown
	}
	if CouponApplyTotal != nil {
		CouponApplyTotal.WithLabelValues(code, result).Inc()
	}
}

func IncPixPayload(result string) {
	if PixPayloadTotal != nil {
		PixPayloadTotal.WithLabelValues(result).Inc()
	}
}

func IncPixExpired() {
	if PixSessionExpiredTotal != nil {
		PixSessionExpiredTotal.Inc()
	}
}

func ObserveCEPLookup(result string, ms float64) {
	if CEPLookupTotal != nil {
		CEPLookupTotal.WithLabelValues(result).Inc()
	}
	if CEPLookupLatency != nil {
		CEPLookupLatency.Observe(ms)
	}
}

func IncCheckoutStep(step string) {
	if CheckoutStepTotal != nil {
		CheckoutStepTotal.WithLabelValues(step).Inc()
	}
}

func IncCheckoutCompleted(method string) {
	if CheckoutCompletedTotal != nil {
		CheckoutCompletedTotal.WithLabelValues(method).Inc()
	}
}

func IncAuthEvent(event, result string) {
	if AuthEventsTotal != nil {
		AuthEventsTotal.WithLabelValues(event, result).Inc()
	}
}
