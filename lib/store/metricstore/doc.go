// Package metricstore wraps any store.Store and records operation counts,
// errors, key misses and latencies with VictoriaMetrics metrics.
//
// Metric names carry the store name as a label:
//
//	kvkit_store_ops_total{store="users",op="get"}
//	kvkit_store_errors_total{store="users",op="get"}
//	kvkit_store_misses_total{store="users"}
//	kvkit_store_op_duration_seconds{store="users",op="get"}
//
// A miss (ErrKeyNotFound) counts as a miss, not as an error. Conditional write
// failures are counted as errors of the set operation.
//
// The metrics are created in the given metrics.Set, or in the process-wide default
// set if none is given, which is what metrics.WritePrometheus exposes.
package metricstore
