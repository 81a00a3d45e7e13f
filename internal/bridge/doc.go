// Package bridge streams device events to websocket clients.
//
// The bridge subscribes to the device's event bus and pushes every event as
// a JSON text message to all connected clients. It also serves the
// Prometheus registry on /metrics and can advertise itself on the local
// network as a _cgd1._tcp mDNS service.
//
// # Endpoints
//
//	/ws       websocket, server-to-client only
//	/metrics  Prometheus exposition
//	/healthz  "ok" plus the current connection state
//
// # Messages
//
// A new client first receives a "hello" message carrying its session id and
// the last known configuration and alarm table. After that it receives one
// message per bus event:
//
//	{"type":"configuration_updated","at":"...","address":"58:2D:...","configuration":{...}}
//	{"type":"alarms_updated","at":"...","address":"58:2D:...","alarms":[...],"partial":false}
//
// Clients that stop reading are disconnected rather than slowing the
// others down.
package bridge
