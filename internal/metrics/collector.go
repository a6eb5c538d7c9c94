package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// Collector keeps per-round metric series of interaction episodes
type Collector struct {
	mu sync.RWMutex

	// metric name -> label key -> points
	series map[string]map[string][]*models.MetricPoint
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		series: make(map[string]map[string][]*models.MetricPoint),
	}
}

// Record stores a metric value at a specific timestamp
func (c *Collector) Record(name string, value float64, timestamp time.Time, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]*models.MetricPoint)
	}
	c.series[name][key] = append(c.series[name][key], &models.MetricPoint{
		Timestamp: timestamp,
		Name:      name,
		Value:     value,
		Labels:    copyLabels(labels),
	})
}

// Series returns a copy of the points recorded for a metric and label set
func (c *Collector) Series(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.series[name][labelKey(labels)]
	if points == nil {
		return nil
	}
	out := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		cp := *p
		cp.Labels = copyLabels(p.Labels)
		out[i] = &cp
	}
	return out
}

// Values returns the recorded values of a metric and label set in order
func (c *Collector) Values(name string, labels map[string]string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.series[name][labelKey(labels)]
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// Aggregation summarizes a metric and label set. It returns nil when nothing
// was recorded.
func (c *Collector) Aggregation(name string, labels map[string]string) *models.Aggregation {
	values := c.Values(name, labels)
	if len(values) == 0 {
		return nil
	}
	return Aggregate(values)
}

// Aggregate computes summary statistics over values
func Aggregate(values []float64) *models.Aggregation {
	if len(values) == 0 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return &models.Aggregation{
		Count:  int64(len(values)),
		Sum:    floats.Sum(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
		Last:   values[len(values)-1],
	}
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
