package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_auth_tokens_issued_total",
		Help: "Signed tokens by kind and customer type.",
	}, []string{"kind", "customer_type"})

	TokensRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_auth_tokens_rejected_total",
		Help: "Presented tokens that failed verification or invalidation checks.",
	}, []string{"kind", "stage"})

	RefreshOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_auth_refresh_total",
		Help: "Refresh requests by outcome: access_only, rotated, lost_race.",
	}, []string{"outcome"})

	CartTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_auth_cart_transitions_total",
		Help: "Cart ownership changes on login or signup.",
	}, []string{"op"})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_auth_login_failures_total",
		Help: "Rejected credential checks.",
	})
)
