// Package metrics exposes Prometheus collectors for the CGD1 engine.
//
// All recording methods are safe on a nil *Metrics, which disables
// instrumentation.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values
const (
	DirectionIn  = "in"
	DirectionOut = "out"

	ResultOK         = "ok"
	ResultError      = "error"
	ResultTimeout    = "timeout"
	ResultSuperseded = "superseded"
)

// NewRegistry creates a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics holds the engine collectors
type Metrics struct {
	FramesTotal     *prometheus.CounterVec // labels: direction, kind
	ConnectAttempts *prometheus.CounterVec // labels: result=ok|error
	AckWaits        *prometheus.CounterVec // labels: opcode, result=ok|timeout|superseded
	UploadBytes     prometheus.Counter
	Connected       prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd1_frames_total",
			Help: "Frames exchanged with the clock.",
		}, []string{"direction", "kind"}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd1_connect_attempts_total",
			Help: "Connection attempts by result.",
		}, []string{"result"}),
		AckWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd1_ack_waits_total",
			Help: "Acknowledgement waits by opcode and outcome.",
		}, []string{"opcode", "result"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cgd1_upload_bytes_total",
			Help: "Ringtone payload bytes sent.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cgd1_connected",
			Help: "1 while a link to the clock is up.",
		}),
	}
	reg.MustRegister(m.FramesTotal, m.ConnectAttempts, m.AckWaits, m.UploadBytes, m.Connected)
	return m
}

// Frame counts one frame
func (m *Metrics) Frame(direction, kind string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(direction, kind).Inc()
}

// ConnectAttempt counts one attempt
func (m *Metrics) ConnectAttempt(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

// AckWait counts one completed wait
func (m *Metrics) AckWait(opcode byte, result string) {
	if m == nil {
		return
	}
	m.AckWaits.WithLabelValues(fmt.Sprintf("0x%02x", opcode), result).Inc()
}

// Uploaded adds n payload bytes
func (m *Metrics) Uploaded(n int) {
	if m == nil {
		return
	}
	m.UploadBytes.Add(float64(n))
}

// SetConnected updates the link gauge
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}
