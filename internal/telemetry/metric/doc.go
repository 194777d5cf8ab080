// Package metric provides Prometheus metrics for ACI.
//
//   - prometheus.go: the Registry of application collectors and its
//     /metrics handler
//   - collector.go: a collector that samples the storage engine at scrape
//     time
//
// Metrics:
//
//   - aci_requests_total{command,result} and
//     aci_request_duration_seconds{command}
//   - aci_sessions_active, aci_sessions_authenticated_total{kind}
//   - aci_events_delivered_total, aci_events_dropped_total
//   - aci_persist_operations_total{op,result}
//   - aci_databases_loaded
package metric
