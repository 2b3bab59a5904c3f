package trust

import (
	"context"
	"fmt"
	"strings"
)

// CompositeEvaluator combines several issuer-trust sources under one
// strategy, e.g. a LocalTrustEvaluator backed by a regulatory root list
// alongside one backed by an organization's own pinned roots.
type CompositeEvaluator struct {
	evaluators []TrustEvaluator
	strategy   CompositeStrategy
}

// CompositeStrategy determines how multiple evaluators are combined.
type CompositeStrategy int

const (
	// StrategyFirstSuccess accepts the issuer on the first evaluator that
	// trusts it, e.g. "trusted by the EUDI root OR by our private pilot root".
	StrategyFirstSuccess CompositeStrategy = iota

	// StrategyAllMustSucceed requires every evaluator that supports the
	// request's key type to trust the issuer, e.g. "chain must validate
	// against both the production root pool and the revocation overlay".
	StrategyAllMustSucceed

	// StrategyFallback tries evaluators in order and returns the first
	// one that completes without error, e.g. "check the cached local
	// decision, otherwise fall back to a slower evaluator".
	StrategyFallback
)

// NewCompositeEvaluator creates a composite evaluator with the given strategy.
func NewCompositeEvaluator(strategy CompositeStrategy, evaluators ...TrustEvaluator) *CompositeEvaluator {
	return &CompositeEvaluator{
		evaluators: evaluators,
		strategy:   strategy,
	}
}

// Evaluate implements TrustEvaluator.
func (c *CompositeEvaluator) Evaluate(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	if len(c.evaluators) == 0 {
		return nil, fmt.Errorf("trust: no evaluators configured")
	}

	switch c.strategy {
	case StrategyFirstSuccess:
		return c.evaluateFirstSuccess(ctx, req)
	case StrategyAllMustSucceed:
		return c.evaluateAllMustSucceed(ctx, req)
	case StrategyFallback:
		return c.evaluateFallback(ctx, req)
	default:
		return nil, fmt.Errorf("trust: unknown strategy: %d", c.strategy)
	}
}

func (c *CompositeEvaluator) evaluateFirstSuccess(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	var lastError error
	var reasons []string

	for _, eval := range c.evaluators {
		if !eval.SupportsKeyType(req.KeyType) {
			continue
		}

		decision, err := eval.Evaluate(ctx, req)
		if err != nil {
			lastError = err
			continue
		}

		if decision.Trusted {
			return decision, nil
		}

		if decision.Reason != "" {
			reasons = append(reasons, decision.Reason)
		}
	}

	return &TrustDecision{
		Trusted: false,
		Reason:  fmt.Sprintf("no trust source accepted issuer %q: %s", req.SubjectID, strings.Join(reasons, "; ")),
		Source:  "composite:first-success",
	}, lastError
}

func (c *CompositeEvaluator) evaluateAllMustSucceed(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	var sources []string
	evaluatorCount := 0

	for _, eval := range c.evaluators {
		if !eval.SupportsKeyType(req.KeyType) {
			continue
		}

		evaluatorCount++
		decision, err := eval.Evaluate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("trust: evaluator failed: %w", err)
		}

		if !decision.Trusted {
			return decision, nil
		}

		if decision.Source != "" {
			sources = append(sources, decision.Source)
		}
	}

	if evaluatorCount == 0 {
		return nil, fmt.Errorf("trust: no evaluator supports key type %q", req.KeyType)
	}

	return &TrustDecision{
		Trusted: true,
		Reason:  fmt.Sprintf("accepted by all trust sources for issuer %q", req.SubjectID),
		Source:  "composite:all-must-succeed(" + strings.Join(sources, "+") + ")",
	}, nil
}

func (c *CompositeEvaluator) evaluateFallback(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	var lastError error

	for _, eval := range c.evaluators {
		if !eval.SupportsKeyType(req.KeyType) {
			continue
		}

		decision, err := eval.Evaluate(ctx, req)
		if err != nil {
			lastError = err
			continue
		}

		return decision, nil
	}

	if lastError != nil {
		return nil, fmt.Errorf("trust: all evaluators failed: %w", lastError)
	}

	return nil, fmt.Errorf("trust: no evaluator supports key type %q", req.KeyType)
}

// SupportsKeyType reports whether any member evaluator supports kt.
func (c *CompositeEvaluator) SupportsKeyType(kt KeyType) bool {
	for _, eval := range c.evaluators {
		if eval.SupportsKeyType(kt) {
			return true
		}
	}
	return false
}

// AddEvaluator appends an evaluator to the composite.
func (c *CompositeEvaluator) AddEvaluator(eval TrustEvaluator) {
	c.evaluators = append(c.evaluators, eval)
}

var _ TrustEvaluator = (*CompositeEvaluator)(nil)
