package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics
var (
	stationsPlayed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wradio_stations_played_total", Help: "Stations started"},
	)
	sessionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wradio_listen_sessions_recorded_total", Help: "Listening sessions written to the library"},
	)
	sessionsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wradio_listen_sessions_discarded_total", Help: "Listening sessions below the minimum threshold"},
	)
	minutesAccrued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wradio_listen_minutes_total", Help: "Listening minutes accrued"},
	)
	playerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wradio_player_errors_total", Help: "Player errors"},
		[]string{"code"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(stationsPlayed, sessionsRecorded, sessionsDiscarded, minutesAccrued, playerErrors)
}
