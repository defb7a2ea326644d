package admin

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/udisondev/arenarelay/internal/relay"
)

// Metrics публикует агрегаты relay в Prometheus. Счётчики логинов и исходов
// подбора инкрементятся подписками на события сервисов; gauges снимаются
// с живого состояния при scrape.
type Metrics struct {
	LoginsTotal       prometheus.Counter
	MatchingOutcomes  *prometheus.CounterVec
	RegistrationsFail prometheus.Counter
}

// NewMetrics registers the relay collectors and returns the mutable counters.
func NewMetrics(reg prometheus.Registerer, registry *relay.GameServerRegistry, sessions *relay.SessionCache, services []*relay.Service) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_logins_total",
			Help: "Successful logins since start.",
		}),
		MatchingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_matching_outcomes_total",
			Help: "Matching requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RegistrationsFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_gameserver_registration_failures_total",
			Help: "Refused game server registrations.",
		}),
	}
	reg.MustRegister(m.LoginsTotal, m.MatchingOutcomes, m.RegistrationsFail)

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "relay_registered_gameservers",
		Help: "Currently registered game servers.",
	}, func() float64 { return float64(registry.Count()) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "relay_active_game_sessions",
		Help: "Game servers in a non-idle session state.",
	}, func() float64 {
		n := 0
		for _, g := range registry.Snapshot() {
			if g.State() != relay.SessionIdle {
				n++
			}
		}
		return float64(n)
	}))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "relay_login_sessions",
		Help: "Live login sessions in the session cache.",
	}, func() float64 { return float64(sessions.Count()) }))

	for _, svc := range services {
		svc := svc
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "relay_service_peers",
			Help:        "Connected peers per service.",
			ConstLabels: prometheus.Labels{"service": svc.Name()},
		}, func() float64 { return float64(svc.PeerCount()) }))
	}

	return m
}

// Observe wires the counters to the relay's event streams.
func (m *Metrics) Observe(login *relay.LoginService, matching *relay.MatchingService, serverdb *relay.ServerDBService) {
	login.OnPeerAuthenticated.Subscribe(func(*relay.Peer) {
		m.LoginsTotal.Inc()
	})
	matching.OnMatchingOutcome.Subscribe(func(ev relay.MatchingOutcomeEvent) {
		outcome := "failure"
		if ev.Success {
			outcome = "success"
		}
		m.MatchingOutcomes.WithLabelValues(ev.Kind, outcome).Inc()
	})
	serverdb.OnGameServerRegistrationFailure.Subscribe(func(relay.RegistrationFailureEvent) {
		m.RegistrationsFail.Inc()
	})
}
