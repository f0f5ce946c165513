package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signaling holds the relay's collectors. Tests pass their own registry so
// parallel hubs never collide on registration.
type Signaling struct {
	RoomsActive      prometheus.Gauge
	ClientsConnected prometheus.Gauge
	MessagesRelayed  *prometheus.CounterVec // by kind: chat | signal
	DeliveryFailures prometheus.Counter
}

// NewSignaling builds and registers the relay collectors on reg.
func NewSignaling(reg prometheus.Registerer) *Signaling {
	s := &Signaling{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "videochat_rooms_active",
			Help: "Rooms with at least one connected member.",
		}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "videochat_clients_connected",
			Help: "Live signaling connections.",
		}),
		MessagesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videochat_messages_relayed_total",
			Help: "Messages relayed between room members.",
		}, []string{"kind"}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "videochat_delivery_failures_total",
			Help: "Sends that failed and got the recipient pruned.",
		}),
	}
	reg.MustRegister(s.RoomsActive, s.ClientsConnected, s.MessagesRelayed, s.DeliveryFailures)
	return s
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
