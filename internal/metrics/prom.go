package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/me/mcsched/pkg/model"
)

// PrometheusCollector exposes run aggregates to a Prometheus registry.
// Values are read from the snapshot source at scrape time, so the
// scrape always reflects the latest completed tick.
type PrometheusCollector struct {
	source func() model.MetricsSnapshot

	ticks        *prometheus.Desc
	utilization  *prometheus.Desc
	loadEstimate *prometheus.Desc
	overloaded   *prometheus.Desc
	hardMisses   *prometheus.Desc

	taskReleases    *prometheus.Desc
	taskCompletions *prometheus.Desc
	taskMisses      *prometheus.Desc
	taskSkips       *prometheus.Desc
	taskOverruns    *prometheus.Desc
	taskMissRate    *prometheus.Desc
	taskAvgResponse *prometheus.Desc
	taskMaxResponse *prometheus.Desc
}

// NewPrometheusCollector creates a collector reading from source.
func NewPrometheusCollector(source func() model.MetricsSnapshot) *PrometheusCollector {
	taskLabels := []string{"task", "criticality"}
	return &PrometheusCollector{
		source: source,
		ticks: prometheus.NewDesc("mcsched_ticks_total",
			"Number of processed scheduler ticks.", nil, nil),
		utilization: prometheus.NewDesc("mcsched_utilization",
			"Static utilization sum wcet/period over registered tasks.", nil, nil),
		loadEstimate: prometheus.NewDesc("mcsched_load_estimate",
			"EWMA utilization estimate of the admission controller.", nil, nil),
		overloaded: prometheus.NewDesc("mcsched_overloaded",
			"1 while the overload shedding latch is engaged.", nil, nil),
		hardMisses: prometheus.NewDesc("mcsched_hard_misses_total",
			"Deadline misses by HARD tasks. Any nonzero value is an anomaly.", nil, nil),
		taskReleases: prometheus.NewDesc("mcsched_task_releases_total",
			"Periodic releases per task.", taskLabels, nil),
		taskCompletions: prometheus.NewDesc("mcsched_task_completions_total",
			"Releases completed within their deadline per task.", taskLabels, nil),
		taskMisses: prometheus.NewDesc("mcsched_task_misses_total",
			"Deadline misses per task.", taskLabels, nil),
		taskSkips: prometheus.NewDesc("mcsched_task_skips_total",
			"Releases voluntarily shed by admission control per task.", taskLabels, nil),
		taskOverruns: prometheus.NewDesc("mcsched_task_overruns_total",
			"WCET overruns per task.", taskLabels, nil),
		taskMissRate: prometheus.NewDesc("mcsched_task_miss_rate",
			"Misses divided by releases per task.", taskLabels, nil),
		taskAvgResponse: prometheus.NewDesc("mcsched_task_avg_response_seconds",
			"Average response time of completed releases per task.", taskLabels, nil),
		taskMaxResponse: prometheus.NewDesc("mcsched_task_max_response_seconds",
			"Maximum response time of completed releases per task.", taskLabels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.utilization
	ch <- c.loadEstimate
	ch <- c.overloaded
	ch <- c.hardMisses
	ch <- c.taskReleases
	ch <- c.taskCompletions
	ch <- c.taskMisses
	ch <- c.taskSkips
	ch <- c.taskOverruns
	ch <- c.taskMissRate
	ch <- c.taskAvgResponse
	ch <- c.taskMaxResponse
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source()

	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(snap.Tick))
	ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue, snap.Utilization)
	ch <- prometheus.MustNewConstMetric(c.loadEstimate, prometheus.GaugeValue, snap.LoadEstimate)
	overloaded := 0.0
	if snap.Overloaded {
		overloaded = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.overloaded, prometheus.GaugeValue, overloaded)
	ch <- prometheus.MustNewConstMetric(c.hardMisses, prometheus.CounterValue, float64(snap.HardMisses))

	for _, tm := range snap.Tasks {
		labels := []string{tm.Name, string(tm.Criticality)}
		ch <- prometheus.MustNewConstMetric(c.taskReleases, prometheus.CounterValue, float64(tm.Releases), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskCompletions, prometheus.CounterValue, float64(tm.Completions), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskMisses, prometheus.CounterValue, float64(tm.Misses), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskSkips, prometheus.CounterValue, float64(tm.Skips), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskOverruns, prometheus.CounterValue, float64(tm.Overruns), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskMissRate, prometheus.GaugeValue, tm.MissRate, labels...)
		ch <- prometheus.MustNewConstMetric(c.taskAvgResponse, prometheus.GaugeValue, tm.AvgResponse.Seconds(), labels...)
		ch <- prometheus.MustNewConstMetric(c.taskMaxResponse, prometheus.GaugeValue, tm.MaxResponse.Seconds(), labels...)
	}
}
