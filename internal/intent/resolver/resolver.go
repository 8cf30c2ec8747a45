// internal/intent/resolver/resolver.go
package resolver

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/common/metrics"
	"invoicing-dashboard/internal/intent"
	"invoicing-dashboard/internal/intent/classifier"
)

const defaultDebtorLimit = 10

// Classifier is the outbound contract the resolver drives. Satisfied by
// classifier.Client.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (*classifier.RawResult, error)
}

// Resolver combines the classifier call with validation into the single
// resolve step the dispatcher and the /intent handler invoke.
type Resolver struct {
	classifier    Classifier
	minConfidence float64
	logger        logger.Logger
}

func New(c Classifier, minConfidence float64, log logger.Logger) *Resolver {
	return &Resolver{
		classifier:    c,
		minConfidence: minConfidence,
		logger: log.WithFields(map[string]interface{}{
			"component": "resolver",
		}),
	}
}

// Resolve classifies the utterance and validates the raw result. Errors are
// the classifier's own (unavailable/malformed); a low-confidence or unmapped
// utterance is a normal outcome carrying intent "none", not an error.
func (r *Resolver) Resolve(ctx context.Context, utterance string) (*Resolved, error) {
	start := time.Now()

	raw, err := r.classifier.Classify(ctx, utterance)
	if err != nil {
		reason := "unavailable"
		if _, ok := err.(*classifier.MalformedError); ok {
			reason = "malformed"
		}
		metrics.ClassifierFailures.WithLabelValues(reason).Inc()
		metrics.ResolveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	resolved := Validate(raw, utterance, r.minConfidence)

	metrics.IntentResolutions.WithLabelValues(string(resolved.Intent)).Inc()
	metrics.ResolveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	r.logger.Info("utterance resolved", map[string]interface{}{
		"intent":     resolved.Intent,
		"confidence": resolved.Confidence,
	})

	return resolved, nil
}

// MinConfidence returns the configured acceptance threshold.
func (r *Resolver) MinConfidence() float64 {
	return r.minConfidence
}

// Validate applies the validation and normalization rules, in order, to the
// classifier's untrusted output. Pure function: same input, same output.
//
// A rejected classification returns the original utterance, never the
// classifier's paraphrase, so an unverified rewrite cannot leak downstream.
func Validate(raw *classifier.RawResult, originalUtterance string, minConfidence float64) *Resolved {
	if raw == nil {
		return rejected(originalUtterance)
	}

	name := intent.Name(raw.Intent)
	if raw.Intent == "" {
		name = intent.None
	}

	confidence, ok := coerceNumber(raw.Confidence)
	if !ok {
		confidence = 0
	}

	// Confidence gate.
	if name == intent.None || !intent.IsValid(name) || math.IsNaN(confidence) || confidence < minConfidence {
		return rejected(originalUtterance)
	}

	// Boundary schema check: reject to "none" rather than propagate
	// partially-typed params.
	if !paramsMatchSchema(name, raw.Params) {
		return rejected(originalUtterance)
	}

	params, ok := normalizeParams(name, raw.Params)
	if !ok {
		return rejected(originalUtterance)
	}

	normalized := raw.NormalizedUtterance
	if normalized == "" {
		normalized = originalUtterance
	}

	return &Resolved{
		Intent:              name,
		NormalizedUtterance: normalized,
		Confidence:          confidence,
		Params:              params,
	}
}

func rejected(originalUtterance string) *Resolved {
	return &Resolved{
		Intent:              intent.None,
		NormalizedUtterance: originalUtterance,
		Confidence:          0,
		Params:              NoneParams{},
	}
}

// normalizeParams builds the typed variant for the intent, applying the
// per-intent coercions and defaults.
func normalizeParams(name intent.Name, raw map[string]interface{}) (Params, bool) {
	switch name {
	case intent.ShowInvoices:
		var p ShowInvoicesParams
		if v, present := raw["periodDays"]; present {
			n, ok := coerceNumber(v)
			if !ok || math.IsNaN(n) {
				return nil, false
			}
			p.PeriodDays = n
		}
		return p, true

	case intent.OpenInvoice:
		id, _ := raw["businessId"].(string)
		if id == "" {
			return nil, false
		}
		return OpenInvoiceParams{BusinessID: id}, true

	case intent.TopDebtors:
		p := TopDebtorsParams{Limit: defaultDebtorLimit}
		if v, present := raw["limit"]; present {
			n, ok := coerceNumber(v)
			if !ok || math.IsNaN(n) || n <= 0 {
				return nil, false
			}
			p.Limit = int(n)
		}
		return p, true

	case intent.CreateInvoice:
		var p CreateInvoiceParams
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, false
		}
		if err := json.Unmarshal(encoded, &p); err != nil {
			return nil, false
		}
		return p, true
	}

	return nil, false
}

// coerceNumber converts numbers in the shapes JSON decoding and careless
// classifiers produce: float64, integer types, json.Number, numeric string.
func coerceNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
