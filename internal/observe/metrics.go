package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_users",
		Help: "Number of online users",
	})

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages by type",
		},
		[]string{"type"}, // local|remote
	)

	userEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_user_events_total",
			Help: "Total user lifecycle events by kind",
		},
		[]string{"kind"}, // user.joined|user.leave|user.renamed
	)

	writeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_write_failures_total",
		Help: "Total failed writes that caused a client to be removed",
	})

	droppedMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_messages_total",
		Help: "Total messages dropped before reaching the relay bus",
	})

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_commands_total",
			Help: "Total commands executed by name",
		},
		[]string{"name"},
	)

	commandErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_command_errors_total",
			Help: "Total command errors by reason",
		},
		[]string{"reason"}, // not_found|usage|handler
	)
)

func init() {
	prometheus.MustRegister(
		onlineUsers,
		messagesTotal,
		userEventsTotal,
		writeFailuresTotal,
		droppedMessagesTotal,
		commandsTotal,
		commandErrorsTotal,
	)
}

func IncMessage(kind string)        { messagesTotal.WithLabelValues(kind).Inc() }
func IncUserEvent(kind string)      { userEventsTotal.WithLabelValues(kind).Inc() }
func IncWriteFailure()              { writeFailuresTotal.Inc() }
func IncDropped()                   { droppedMessagesTotal.Inc() }
func AddOnline(delta float64)       { onlineUsers.Add(delta) }
func IncCommand(name string)        { commandsTotal.WithLabelValues(name).Inc() }
func IncCommandError(reason string) { commandErrorsTotal.WithLabelValues(reason).Inc() }
