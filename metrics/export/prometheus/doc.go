// Package prometheus renders authgate engine counters in the Prometheus text
// exposition format.
//
// Counters are named authgate_*_total and the login latency histogram is
// authgate_login_latency_seconds. Nothing is registered globally; callers
// mount Exporter.Handler where they like.
package prometheus
