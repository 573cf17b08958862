// Package metrics exposes the prometheus counters and gauges the real-time
// core increments on the connection and packet-queue hot paths. Every
// counter here is a package-level global, the way rubble's own `log::`
// call sites are unconditionally available without an explicit logger
// handle threaded through every function — metrics are ambient
// instrumentation, not part of any component's public contract.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueueCommitsTotal counts successful PacketQueue.ProduceWith calls.
	QueueCommitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bled",
		Subsystem: "queue",
		Name:      "commits_total",
		Help:      "Packets successfully committed to a single-slot packet queue.",
	})

	// QueueDropsTotal counts PacketQueue.ProduceWith calls that found the
	// queue full and could not proceed. Consume attempts on an empty queue
	// are not counted.
	QueueDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bled",
		Subsystem: "queue",
		Name:      "drops_total",
		Help:      "Produce attempts that found the queue full.",
	})

	// ConnectionEventsTotal counts completed connection events across all
	// connections this process has handled.
	ConnectionEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bled",
		Subsystem: "connection",
		Name:      "events_total",
		Help:      "Connection events processed.",
	})

	// RetransmitsTotal counts data channel PDUs retransmitted due to a
	// missing or bad-CRC acknowledgement.
	RetransmitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bled",
		Subsystem: "connection",
		Name:      "retransmits_total",
		Help:      "Data channel PDUs retransmitted after a missing or invalid ack.",
	})

	// ConnectionsActive is a 0-or-1 gauge for whether a connection is
	// currently established. It is registered and exported, but nothing in
	// this module sets it, so it always reads 0.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bled",
		Subsystem: "connection",
		Name:      "active",
		Help:      "1 if a Link-Layer connection is currently established.",
	})
)

func init() {
	prometheus.MustRegister(QueueCommitsTotal, QueueDropsTotal, ConnectionEventsTotal, RetransmitsTotal, ConnectionsActive)
}
