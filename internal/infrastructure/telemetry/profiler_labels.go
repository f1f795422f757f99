package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used when wrapping work in profiling labels. The value sets are
// all small (static supplier catalog, handful of POS systems and streams),
// which keeps profile cardinality bounded.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelSupplier  = "supplier_id"
	ProfilingLabelTenantID  = "tenant_id"
)

// MaxLabelValueLength caps label values so a runaway identifier cannot
// inflate the profile store.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists keys that sanitizeLabels silently drops.
// Per-request and per-entity ids would explode the series count; tenant_id
// is deliberately absent because tenant counts stay small here.
var HighCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"order_id":   true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// WithProfilingLabels runs fn with the given pprof labels attached, so CPU
// samples taken inside can be sliced by label in Pyroscope. The map is
// copied before use; callers may reuse or mutate it afterwards.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	labelsCopy := make(map[string]string, len(labels))
	maps.Copy(labelsCopy, labels)

	pairs := sanitizeLabels(labelsCopy)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels turns the map into a deterministic key/value slice:
// empty pairs and high-cardinality keys are dropped, long values truncated,
// keys normalized to snake_case.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		if HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}

		sanitizedKey := sanitizeLabelKey(key)
		if sanitizedKey == "" {
			continue
		}
		pairs = append(pairs, sanitizedKey, value)
	}

	return pairs
}

// sanitizeLabelKey lowercases the key and strips anything outside
// [a-z0-9_], mapping spaces and dashes to underscores first
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}
