// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Values of the result label on pluginLoads.
const (
	resultLoaded    = "loaded"
	resultFailed    = "failed"
	resultDuplicate = "duplicate"
	resultDiscarded = "discarded"
)

var (
	// pluginLoads counts per-slot load outcomes.
	pluginLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "widgetdeck_plugin_loads_total",
		Help: "Total number of widget plugin manifest loads by result",
	}, []string{"result"})

	// iconFailures counts icons that degraded to "no icon".
	iconFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widgetdeck_plugin_icon_failures_total",
		Help: "Total number of widget plugin icons that failed to load",
	})
)
