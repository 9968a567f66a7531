// Package metrics exposes Sentinel's Prometheus metrics.
//
// A Collector implements the metrics hooks of the cache, the research
// orchestrator and the coordinator, so one value is passed to all three:
//
//	collector := metrics.NewCollector(metrics.Options{}, nil)
//	c := cache.New(store, cache.WithMetrics(collector))
//	coord := coordinator.New(cfg, coordinator.Deps{Metrics: collector, ...})
//	mux.Handle("/metrics", collector.Handler())
//
// # Metrics
//
//   - sentinel_lookups_total{source}
//   - sentinel_cache_lookups_total{result}
//   - sentinel_cache_entries
//   - sentinel_research_tasks_total{backend,status}
//   - sentinel_research_duration_seconds{backend}
//   - sentinel_research_in_flight
//   - sentinel_extraction_failures_total{reason}
//   - sentinel_truth_corrections_total
//   - sentinel_backend_healthy{backend}
//   - sentinel_http_requests_total{route,code}
//   - sentinel_http_request_duration_seconds{route}
//
// All label values come from closed sets; product keys are never used as
// labels.
package metrics
