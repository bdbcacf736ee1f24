// Package provider defines the boundary to the external reasoning
// service that maps game context to actions.
//
// The wire contract is strict: a decision must carry action, reasoning,
// and goal_update fields, and the action must be in the fixed
// vocabulary. Anything else is a provider failure, which callers degrade
// to a safe passive action. There is no free-text parsing.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/history"
)

// Goal update tiers. TierNone means the decision carries no goal change.
const (
	TierNone      = "none"
	TierPrimary   = "primary"
	TierSecondary = "secondary"
	TierTertiary  = "tertiary"
)

// Actions the provider may return. The executor enforces the same set.
var actionVocabulary = map[string]struct{}{
	"up": {}, "down": {}, "left": {}, "right": {},
	"a": {}, "b": {}, "start": {}, "select": {},
	"wait": {},
}

// ValidAction reports whether a token is in the action vocabulary.
func ValidAction(token string) bool {
	_, ok := actionVocabulary[token]
	return ok
}

// GoalUpdate is a goal directive attached to a decision.
type GoalUpdate struct {
	Tier string `json:"tier"`
	Text string `json:"text,omitempty"`
}

// None reports whether the update carries no goal change.
func (g GoalUpdate) None() bool {
	return g.Tier == "" || g.Tier == TierNone
}

// Decision is a validated provider response.
type Decision struct {
	Action     string     `json:"action"`
	Reasoning  string     `json:"reasoning"`
	GoalUpdate GoalUpdate `json:"goal_update"`
}

// Provider is the opaque reasoning capability. Decide may take many
// seconds; callers never invoke it on the simulation loop.
type Provider interface {
	Decide(ctx context.Context, snap gamestate.Snapshot, contextText string) (Decision, error)
}

// decisionWire mirrors Decision with pointer fields so that absent
// required keys are detectable after decoding.
type decisionWire struct {
	Action     *string     `json:"action"`
	Reasoning  *string     `json:"reasoning"`
	GoalUpdate *GoalUpdate `json:"goal_update"`
}

// ParseDecision decodes and validates a decision document. Unknown
// fields, missing required fields, and out-of-vocabulary actions are all
// errors: the caller treats them exactly like a provider failure.
func ParseDecision(data []byte) (Decision, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w decisionWire
	if err := dec.Decode(&w); err != nil {
		return Decision{}, fmt.Errorf("provider: invalid decision JSON: %w", err)
	}
	if w.Action == nil {
		return Decision{}, fmt.Errorf("provider: decision missing action")
	}
	if w.Reasoning == nil {
		return Decision{}, fmt.Errorf("provider: decision missing reasoning")
	}
	if w.GoalUpdate == nil {
		return Decision{}, fmt.Errorf("provider: decision missing goal_update")
	}
	if !ValidAction(*w.Action) {
		return Decision{}, fmt.Errorf("provider: action %q not in vocabulary", *w.Action)
	}

	g := *w.GoalUpdate
	switch g.Tier {
	case "", TierNone, TierPrimary, TierSecondary, TierTertiary:
	default:
		return Decision{}, fmt.Errorf("provider: goal_update tier %q not recognized", g.Tier)
	}
	if !g.None() && g.Text == "" {
		return Decision{}, fmt.Errorf("provider: goal_update %s carries no text", g.Tier)
	}

	return Decision{
		Action:     *w.Action,
		Reasoning:  *w.Reasoning,
		GoalUpdate: g,
	}, nil
}

// describeTurns renders a turn list into the compact per-line form both
// implementations feed their summarization calls.
func describeTurns(turns []history.Turn) string {
	var b bytes.Buffer
	for _, t := range turns {
		fmt.Fprintf(&b, "Turn %d:", t.Number)
		if t.Action != "" {
			fmt.Fprintf(&b, " Action=%s", t.Action)
		}
		if t.Outcome != "" {
			fmt.Fprintf(&b, ", Outcome=%s", t.Outcome)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
