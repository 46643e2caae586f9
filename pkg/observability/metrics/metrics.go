package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsTotal   atomic.Int64
	predictionsHigh    atomic.Int64
	predictionsLow     atomic.Int64
	inputsRejected     atomic.Int64
	modelUnavailable   atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	artifactLoads      atomic.Int64
	predictionLatencyU atomic.Int64
)

func ObservePrediction(highRisk bool, latencyMicros int64) {
	predictionsTotal.Add(1)
	if highRisk {
		predictionsHigh.Add(1)
	} else {
		predictionsLow.Add(1)
	}
	predictionLatencyU.Add(latencyMicros)
}

func ObserveRejectedInput() { inputsRejected.Add(1) }
func ObserveModelUnavailable() { modelUnavailable.Add(1) }
func ObserveArtifactLoad() { artifactLoads.Add(1) }

func ObserveCache(hit bool) {
	if hit {
		cacheHits.Add(1)
		return
	}
	cacheMisses.Add(1)
}

// Reset zeroes every counter.
func Reset() {
	for _, c := range []*atomic.Int64{
		&predictionsTotal, &predictionsHigh, &predictionsLow, &inputsRejected,
		&modelUnavailable, &cacheHits, &cacheMisses, &artifactLoads, &predictionLatencyU,
	} {
		c.Store(0)
	}
}

func PredictionsTotal() int64 { return predictionsTotal.Load() }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP tbdelay_predictions_total Number of risk predictions served.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_predictions_total counter\n")
	fmt.Fprintf(w, "tbdelay_predictions_total %d\n", predictionsTotal.Load())

	fmt.Fprintf(w, "# HELP tbdelay_predictions_by_category_total Number of risk predictions per category.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_predictions_by_category_total counter\n")
	fmt.Fprintf(w, "tbdelay_predictions_by_category_total{category=\"high\"} %d\n", predictionsHigh.Load())
	fmt.Fprintf(w, "tbdelay_predictions_by_category_total{category=\"low_medium\"} %d\n", predictionsLow.Load())

	fmt.Fprintf(w, "# HELP tbdelay_prediction_latency_microseconds_sum Total time spent scoring predictions.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_prediction_latency_microseconds_sum counter\n")
	fmt.Fprintf(w, "tbdelay_prediction_latency_microseconds_sum %d\n", predictionLatencyU.Load())

	fmt.Fprintf(w, "# HELP tbdelay_inputs_rejected_total Number of submissions rejected for out-of-domain inputs.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_inputs_rejected_total counter\n")
	fmt.Fprintf(w, "tbdelay_inputs_rejected_total %d\n", inputsRejected.Load())

	fmt.Fprintf(w, "# HELP tbdelay_model_unavailable_total Number of submissions received while no model artifact was present.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_model_unavailable_total counter\n")
	fmt.Fprintf(w, "tbdelay_model_unavailable_total %d\n", modelUnavailable.Load())

	fmt.Fprintf(w, "# HELP tbdelay_prediction_cache_hits_total Number of predictions answered from the cache.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_prediction_cache_hits_total counter\n")
	fmt.Fprintf(w, "tbdelay_prediction_cache_hits_total %d\n", cacheHits.Load())

	fmt.Fprintf(w, "# HELP tbdelay_prediction_cache_misses_total Number of predictions not found in the cache.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_prediction_cache_misses_total counter\n")
	fmt.Fprintf(w, "tbdelay_prediction_cache_misses_total %d\n", cacheMisses.Load())

	fmt.Fprintf(w, "# HELP tbdelay_artifact_loads_total Number of times the model artifact was read from disk.\n")
	fmt.Fprintf(w, "# TYPE tbdelay_artifact_loads_total counter\n")
	fmt.Fprintf(w, "tbdelay_artifact_loads_total %d\n", artifactLoads.Load())
}
