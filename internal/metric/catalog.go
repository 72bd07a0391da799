// Package metric holds the catalog of per-section text metrics.
//
// A metric's position in the catalog is its durable id: MetricRecord rows
// persist that integer, so the catalog is append-only. Reordering or removing
// an entry changes the meaning of stored values.
package metric

import (
	"fmt"
	"strconv"
	"strings"
)

// Func computes one metric over a section's text. It must be pure.
type Func func(text string) float64

// Metric is one catalog entry.
type Metric struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Compute     Func   `json:"-"`
}

// Catalog is an ordered, append-only list of metrics.
type Catalog struct {
	metrics []Metric
	byName  map[string]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]int)}
}

// Append adds a metric and returns its id. Names and display names are
// matched case-insensitively and must be unique across the catalog.
func (c *Catalog) Append(name, displayName string, fn Func) (int, error) {
	if name == "" || fn == nil {
		return 0, fmt.Errorf("metric requires a name and a function")
	}
	keys := []string{strings.ToLower(name)}
	if displayName != "" && !strings.EqualFold(displayName, name) {
		keys = append(keys, strings.ToLower(displayName))
	}
	for _, k := range keys {
		if _, dup := c.byName[k]; dup {
			return 0, fmt.Errorf("duplicate metric name %q", k)
		}
	}

	id := len(c.metrics)
	c.metrics = append(c.metrics, Metric{ID: id, Name: name, DisplayName: displayName, Compute: fn})
	for _, k := range keys {
		c.byName[k] = id
	}
	return id, nil
}

// MustAppend is Append for statically known metrics.
func (c *Catalog) MustAppend(name, displayName string, fn Func) int {
	id, err := c.Append(name, displayName, fn)
	if err != nil {
		panic(err)
	}
	return id
}

// Len returns the number of metrics.
func (c *Catalog) Len() int {
	return len(c.metrics)
}

// All returns the metrics in id order.
func (c *Catalog) All() []Metric {
	out := make([]Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// ByID returns the metric with the given id.
func (c *Catalog) ByID(id int) (Metric, bool) {
	if id < 0 || id >= len(c.metrics) {
		return Metric{}, false
	}
	return c.metrics[id], true
}

// ByName returns the metric with the given name or display name.
func (c *Catalog) ByName(name string) (Metric, bool) {
	id, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Metric{}, false
	}
	return c.metrics[id], true
}

// Resolve accepts a name, a display name or a decimal id.
func (c *Catalog) Resolve(ref string) (Metric, bool) {
	if m, ok := c.ByName(ref); ok {
		return m, true
	}
	if id, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		return c.ByID(id)
	}
	return Metric{}, false
}

// Names returns the machine names in id order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.metrics))
	for i, m := range c.metrics {
		names[i] = m.Name
	}
	return names
}
