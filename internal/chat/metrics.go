package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_sessions",
		Help: "Number of currently registered sessions",
	})

	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_rooms",
		Help: "Number of currently active rooms",
	})

	UploadQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_upload_queue_depth",
		Help: "Advisory count of pending file transfers in the upload queue",
	})

	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_total",
		Help: "Total domain events recorded by tag",
	}, []string{"tag"})

	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_command_duration_seconds",
		Help:    "Time to dispatch each Active-state command",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	TransfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_transfers_total",
		Help: "Total file transfers processed by outcome",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(ActiveRooms)
	prometheus.MustRegister(UploadQueueDepth)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(TransfersTotal)
}
