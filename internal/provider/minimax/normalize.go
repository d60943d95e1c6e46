package minimax

import (
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/normalize"
	"github.com/tnunamak/usagemeter/internal/usage"
)

var window = normalize.Window{Length: 5 * time.Hour, Tolerance: 10 * time.Minute}

var statusCheck = normalize.StatusCheck{
	Vendor:      "MiniMax",
	Key:         "base_resp",
	CodeField:   "status_code",
	MsgField:    "status_msg",
	AuthCodes:   []int{1004},
	AuthHints:   []string{"cookie", "log in", "login"},
	AuthMessage: authMessage,
}

var itemFields = normalize.AliasTable{
	normalize.FieldTotal:      {"current_interval_total_count", "currentIntervalTotalCount"},
	// coding_plan/remains reports remaining prompts under the usage count name.
	normalize.FieldUsageCount: {"current_interval_usage_count", "currentIntervalUsageCount"},
	normalize.FieldRemaining: {
		"current_interval_remaining_count", "currentIntervalRemainingCount",
		"current_interval_remains_count", "currentIntervalRemainsCount",
		"current_interval_remain_count", "currentIntervalRemainCount",
		"remaining_count", "remainingCount",
		"remains_count", "remainsCount",
		"remaining", "remains",
		"left_count", "leftCount",
	},
	normalize.FieldUsed:       {"current_interval_used_count", "currentIntervalUsedCount", "used_count", "used"},
	normalize.FieldStart:      {"start_time", "startTime"},
	normalize.FieldEnd:        {"end_time", "endTime"},
	normalize.FieldRemainsFor: {"remains_time", "remainsTime"},
}

var (
	wrapperPlan = normalize.AliasTable{
		normalize.FieldPlan: {"current_subscribe_title", "plan_name", "plan", "current_plan_title", "combo_title"},
	}
	rootPlan = normalize.AliasTable{
		normalize.FieldPlan: {"current_subscribe_title", "plan_name", "plan"},
	}
)

var planNamer = normalize.PlanNamer{
	Prefix:       regexp.MustCompile(`(?i)^minimax\s+coding\s+plan\b[:\-]?\s*`),
	Generic:      regexp.MustCompile(`(?i)coding\s+plan`),
	GenericLabel: "Coding Plan",
}

// Normalize reads a coding_plan/remains payload. It returns false when the
// payload is well formed but has no usable quota, and an error for a vendor
// error envelope.
func Normalize(payload gjson.Result, realm Realm, nowMs int64) (usage.Record, bool, error) {
	if !payload.IsObject() {
		return usage.Record{}, false, nil
	}
	env := normalize.Unwrap(payload, "data")
	if err := statusCheck.Check(env); err != nil {
		return usage.Record{}, false, err
	}

	items, ok := env.FirstArray("model_remains", "modelRemains")
	if !ok {
		return usage.Record{}, false, nil
	}
	item, ok := normalize.SelectItem(items, func(r gjson.Result) (float64, bool) {
		return itemFields.Number(r, normalize.FieldTotal)
	})
	if !ok {
		return usage.Record{}, false, nil
	}
	total, _ := itemFields.Number(item, normalize.FieldTotal)

	remaining, hasRemaining := itemFields.Number(item, normalize.FieldRemaining)
	if !hasRemaining {
		remaining, hasRemaining = itemFields.Number(item, normalize.FieldUsageCount)
	}
	explicitUsed, hasUsed := itemFields.Number(item, normalize.FieldUsed)
	used, ok := normalize.Reconcile(total, explicitUsed, hasUsed, remaining, hasRemaining)
	if !ok {
		return usage.Record{}, false, nil
	}

	startMs := epoch(item, normalize.FieldStart)
	endMs := epoch(item, normalize.FieldEnd)
	var remainsMs *int64
	if raw, ok := itemFields.Number(item, normalize.FieldRemainsFor); ok {
		if ms, ok := normalize.InferRemainsMs(raw, endMs, nowMs, window); ok {
			remainsMs = &ms
		}
	}

	rec := usage.Record{
		PlanName:         planName(env, total, realm),
		Used:             used,
		Total:            total,
		ResetsAtMs:       normalize.ResetMs(endMs, remainsMs, nowMs),
		PeriodDurationMs: normalize.PeriodMs(startMs, endMs),
	}
	if !rec.Valid() {
		return usage.Record{}, false, nil
	}
	return rec, true, nil
}

func epoch(item gjson.Result, f normalize.Field) *int64 {
	ms, ok := normalize.EpochToMs(itemFields.Lookup(item, f))
	if !ok {
		return nil
	}
	return &ms
}

// planName prefers an explicit name and never looks at model names.
func planName(env normalize.Envelope, total float64, realm Realm) string {
	raw, ok := wrapperPlan.String(env.Wrapper, normalize.FieldPlan)
	if !ok {
		raw, ok = rootPlan.String(env.Root, normalize.FieldPlan)
	}
	if ok {
		if name := planNamer.Normalize(raw); name != "" {
			return name
		}
	}
	return realm.Tiers.Infer(total)
}
