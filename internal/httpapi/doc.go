// Package httpapi exposes perspective correction over HTTP.
//
// Routes:
//
//	POST /v1/correct        multipart upload, returns the outcome and a PNG
//	GET  /v1/results/:name  a result saved with save=true
//	GET  /health            liveness probe
//	GET  /metrics           Prometheus exposition, when a metrics handler is set
//
// The /v1/correct form accepts:
//
//	image              required file field
//	orientation        up, down, left, right and -mirrored variants (default up)
//	policy             strict or best_by_area
//	fallback           true or false
//	max_observations   integer >= 1
//	min_confidence     number in [0, 1]
//	apply_orientation  rotate the upload upright before correcting
//	save               persist the result when a store is configured
package httpapi
