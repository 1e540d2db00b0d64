package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed in the handler",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsInvalidArguments = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_invalid_arguments",
		Help:         "stats_tool_calls_invalid_arguments provides total tool calls rejected by schema validation",
		RequiredTags: []string{"tool"},
	}

	StatsUpstreamCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_upstream_calls_succeeded",
		Help:         "stats_upstream_calls_succeeded provides total weather API calls succeeded",
		RequiredTags: []string{"stage"},
	}

	StatsUpstreamCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_upstream_calls_failed",
		Help:         "stats_upstream_calls_failed provides total weather API calls failed",
		RequiredTags: []string{"stage"},
	}

	StatsGridCacheHits = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_grid_cache_hits",
		Help:         "stats_grid_cache_hits provides total grid cache hits",
		RequiredTags: []string{"backend"},
	}

	StatsGridCacheMisses = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_grid_cache_misses",
		Help:         "stats_grid_cache_misses provides total grid cache misses",
		RequiredTags: []string{"backend"},
	}

	StatsSessionsStarted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_sessions_started",
		Help:         "stats_sessions_started provides total MCP sessions started",
		RequiredTags: []string{"transport"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfUpstreamCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_upstream_call",
		Help:         "perf_upstream_call provides duration of weather API call",
		RequiredTags: []string{"stage"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfToolCall,
	&PerfUpstreamCall,
	&StatsGridCacheHits,
	&StatsGridCacheMisses,
	&StatsSessionsStarted,
	&StatsToolCallsFailed,
	&StatsToolCallsInvalidArguments,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsUpstreamCallsFailed,
	&StatsUpstreamCallsSucceeded,
}
