package domain

import (
	"errors"
	"strings"
)

// Metric names a rankable report counter.
// defined as enum to enforce valid values at compile time.
type Metric string

const (
	MetricChapters      Metric = "chapters"
	MetricPrayerMinutes Metric = "prayerMinutes"
	MetricFastingDays   Metric = "fastingDays"
	MetricSoulsReached  Metric = "soulsReached"
)

var ErrInvalidMetric = errors.New("invalid metric")

// metricAliases maps accepted spellings, including the spanish field names, to metrics.
var metricAliases = map[string]Metric{
	"chapters":      MetricChapters,
	"capitulos":     MetricChapters,
	"prayerminutes": MetricPrayerMinutes,
	"prayer":        MetricPrayerMinutes,
	"oracion":       MetricPrayerMinutes,
	"fastingdays":   MetricFastingDays,
	"ayunos":        MetricFastingDays,
	"soulsreached":  MetricSoulsReached,
	"almas":         MetricSoulsReached,
}

// AllMetrics returns the rankable metrics in display order.
func AllMetrics() []Metric {
	return []Metric{MetricChapters, MetricPrayerMinutes, MetricFastingDays, MetricSoulsReached}
}

// ParseMetric validates and returns a Metric from a string.
func ParseMetric(s string) (Metric, error) {
	m, ok := metricAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrInvalidMetric
	}
	return m, nil
}

// String returns the string representation of the Metric.
func (m Metric) String() string {
	return string(m)
}

// IsValid returns true if the metric is one of the rankable counters.
func (m Metric) IsValid() bool {
	switch m {
	case MetricChapters, MetricPrayerMinutes, MetricFastingDays, MetricSoulsReached:
		return true
	}
	return false
}

// Value extracts this metric from a report's counters.
// prayer is measured in total minutes so hours and minutes rank together.
func (m Metric) Value(x Metrics) int {
	switch m {
	case MetricChapters:
		return x.Chapters
	case MetricPrayerMinutes:
		return x.TotalPrayerMinutes()
	case MetricFastingDays:
		return x.FastingDays
	case MetricSoulsReached:
		return x.SoulsReached
	default:
		return 0
	}
}

// Label returns the spanish display label used by the pastoral panel.
func (m Metric) Label() string {
	switch m {
	case MetricChapters:
		return "Capítulos"
	case MetricPrayerMinutes:
		return "Oración"
	case MetricFastingDays:
		return "Ayunos"
	case MetricSoulsReached:
		return "Almas"
	default:
		return string(m)
	}
}
