package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrainingEpochs counts completed training epochs across all runs
var TrainingEpochs = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "mindset_training_epochs_total",
		Help: "Total number of training epochs completed",
	},
)

// TrainingRuns counts training runs by outcome (succeeded/failed)
var TrainingRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mindset_training_runs_total",
		Help: "Total number of training runs by outcome",
	},
	[]string{"status"},
)

// TrainingDuration records wall time of full training runs
var TrainingDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "mindset_training_duration_seconds",
		Help:    "Wall time in seconds of a model fit",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	},
)

// Loss and metric gauges from the most recent epoch, labelled by split
var (
	TrainingLoss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mindset_training_loss",
			Help: "Mean squared error of the most recent epoch",
		},
		[]string{"split"},
	)

	TrainingMAE = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mindset_training_mae",
			Help: "Mean absolute error of the most recent epoch",
		},
		[]string{"split"},
	)

	TrainingExamples = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mindset_training_examples",
			Help: "Number of sequence examples in the most recent run",
		},
		[]string{"split"},
	)
)

// PredictionsTotal counts predicted rows
var PredictionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "mindset_predictions_total",
		Help: "Total number of predicted output rows",
	},
)

// ArtifactOperations counts artifact save/load attempts by outcome
var ArtifactOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mindset_artifact_operations_total",
		Help: "Artifact save and load operations by outcome",
	},
	[]string{"op", "status"},
)

func init() {
	prometheus.MustRegister(TrainingEpochs, TrainingRuns, TrainingDuration)
	prometheus.MustRegister(TrainingLoss, TrainingMAE, TrainingExamples)
	prometheus.MustRegister(PredictionsTotal, ArtifactOperations)
}

// Outcome maps an error to the status label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}
