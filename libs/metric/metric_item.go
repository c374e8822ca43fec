package metric

// MetricItem is the metric of one module. It renders itself as JSON.
type MetricItem interface {
	JSONString() string
}
