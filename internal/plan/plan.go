// Package plan decides which place providers to call for a parsed intent and
// with what parameters.
//
// The baseline plan calls every configured provider in preference order. A
// simple intent routes its query as a text search; an empty query falls back
// to a category-filtered nearby search. Multi-entity intents produce one call
// per provider per entity kind so that partner candidates end up in the fused
// set. An optional completer can override the baseline; any model failure
// falls back to the baseline plan.
package plan

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/pkg/provider/llm"
)

// planSystem instructs the model to emit the provider plan JSON.
const planSystem = `You are a search planner. Given the parsed intent, decide which providers to call and with what parameters.

Return a plan as JSON:
{
  "providers": ["google", "yelp"],
  "google_params": {
    "use_text_search": true/false,
    "query": "search term",
    "category": "place type"
  },
  "yelp_params": {
    "query": "search term",
    "category": "category alias"
  },
  "reasoning": "brief explanation"
}

Guidelines:
- Use text search if query is specific (brand names, cuisine types)
- Use nearby search for generic queries
- Always call both providers for better coverage
- Match category to provider schemas`

// Call is one provider invocation the executor should make. Lat, lng, radius
// and limit come from the request; the plan only decides query routing.
type Call struct {
	Provider string `json:"provider"`
	Query    string `json:"query,omitempty"`
	Category string `json:"category,omitempty"`
}

// Plan is an ordered list of provider calls. Call order fixes the
// concatenation order of results before dedupe.
type Plan struct {
	Calls     []Call `json:"calls"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Providers returns the distinct provider names in call order.
func (p Plan) Providers() []string {
	seen := make(map[string]struct{}, len(p.Calls))
	var names []string
	for _, c := range p.Calls {
		if _, ok := seen[c.Provider]; ok {
			continue
		}
		seen[c.Provider] = struct{}{}
		names = append(names, c.Provider)
	}
	return names
}

// Planner builds provider plans. The provider list is configuration and fixes
// both which providers may be called and their preference order.
type Planner struct {
	providers []string
	completer llm.Completer
	logger    *slog.Logger
}

// Option is a functional option for configuring a [Planner].
type Option func(*Planner)

// WithCompleter enables LLM-assisted planning.
func WithCompleter(c llm.Completer) Option {
	return func(p *Planner) {
		p.completer = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// NewPlanner returns a Planner over the configured providers, in preference
// order.
func NewPlanner(providers []string, opts ...Option) *Planner {
	p := &Planner{providers: providers, logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Build produces the plan for an intent. It never fails: without a completer
// it returns the baseline plan, and with one it falls back to the baseline on
// any model or parse error.
func (p *Planner) Build(ctx context.Context, in intent.Intent) Plan {
	baseline := p.baseline(in)
	if p.completer == nil {
		return baseline
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return baseline
	}
	resp, err := p.completer.Complete(ctx, llm.Request{
		SystemPrompt: planSystem,
		Messages: []llm.Message{
			{Role: "user", Content: "Intent: " + string(payload)},
		},
		Temperature: 0.1,
		JSONOnly:    true,
	})
	if err != nil {
		p.logger.Warn("plan failed, using baseline", "error", err)
		return baseline
	}

	var wire planWire
	if err := json.Unmarshal([]byte(resp.Content), &wire); err != nil {
		p.logger.Warn("plan returned malformed JSON, using baseline", "error", err)
		return baseline
	}

	override, ok := wire.toPlan(p.providers, in)
	if !ok {
		p.logger.Warn("plan named no configured provider, using baseline")
		return baseline
	}
	return override
}

// baseline is the deterministic plan: every configured provider, query routed
// as text search when present. Multi-entity intents search each entity kind
// so the fused set contains partner candidates for the constraint join.
func (p *Planner) baseline(in intent.Intent) Plan {
	plan := Plan{Reasoning: "baseline: calling all configured providers"}
	for _, name := range p.providers {
		if in.Kind == intent.KindMultiEntity {
			for _, ent := range in.Entities {
				plan.Calls = append(plan.Calls, Call{Provider: name, Query: ent.Kind})
			}
			continue
		}
		plan.Calls = append(plan.Calls, Call{
			Provider: name,
			Query:    in.Query,
			Category: in.Category,
		})
	}
	return plan
}

// planWire mirrors the JSON shape the plan prompt asks for.
type planWire struct {
	Providers    []string        `json:"providers"`
	GoogleParams *planParamsWire `json:"google_params"`
	YelpParams   *planParamsWire `json:"yelp_params"`
	Reasoning    string          `json:"reasoning"`
}

type planParamsWire struct {
	UseTextSearch bool   `json:"use_text_search"`
	Query         string `json:"query"`
	Category      string `json:"category"`
}

// toPlan converts the wire form, keeping only configured providers and the
// configured preference order. The intent backstops empty parameters.
func (w planWire) toPlan(configured []string, in intent.Intent) (Plan, bool) {
	named := make(map[string]struct{}, len(w.Providers))
	for _, name := range w.Providers {
		named[name] = struct{}{}
	}

	plan := Plan{Reasoning: w.Reasoning}
	for _, name := range configured {
		if _, ok := named[name]; !ok {
			continue
		}
		call := Call{Provider: name, Query: in.Query, Category: in.Category}
		var params *planParamsWire
		switch name {
		case "google":
			params = w.GoogleParams
		case "yelp":
			params = w.YelpParams
		}
		if params != nil {
			if params.Query != "" {
				call.Query = params.Query
			}
			if params.Category != "" {
				call.Category = params.Category
			}
			if name == "google" && !params.UseTextSearch {
				call.Query = ""
			}
		}
		plan.Calls = append(plan.Calls, call)
	}
	if len(plan.Calls) == 0 {
		return Plan{}, false
	}
	return plan, true
}
