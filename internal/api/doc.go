// Package api exposes a disruptor engine over HTTP.
//
// Endpoints:
//
//	GET  /api/groups                 configured groups and their configs
//	POST /api/evaluate?group=&phase= evaluate one phase; 503 when disrupted
//	GET  /api/stats                  load scenario statistics, if one is attached
//	GET  /metrics                    Prometheus metrics, if a collector is attached
//	GET  /ws                         live disruption events over WebSocket
//
// The evaluate endpoint lets processes that cannot link the engine use it as
// a remote checkpoint: call it before (and optionally after) the guarded
// operation and abort on a non-200 response.
package api
