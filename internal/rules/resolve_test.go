package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() []*Rule {
	return []*Rule{
		ProjectRule("conventions", []string{"# Conventions"}),
		TechRule("go-style", []string{"**/*.go"}, []string{"# Go"}),
		FrameworkRule("gin", []string{"**/handlers/**"}, []string{"gin"}, []string{"# Gin"}),
		ModuleRule("billing", []string{"src/billing/**"}, []string{"# Billing"}),
		DomainRule("security", []string{"auth", "crypto"}, []string{"# Security"}),
	}
}

func ruleNames(matched []*Rule) []string {
	names := make([]string, len(matched))
	for i, r := range matched {
		names[i] = r.Name
	}
	return names
}

func TestNewRuleSet(t *testing.T) {
	t.Parallel()

	s := NewRuleSet(testRules())

	assert.Equal(t, 5, s.Len())
	assert.Empty(t, s.Diagnostics())
	require.NotNil(t, s.Find("gin"))
	assert.Nil(t, s.Find("missing"))
}

func TestNewRuleSet_Diagnostics(t *testing.T) {
	t.Parallel()

	t.Run("InvalidPattern", func(t *testing.T) {
		t.Parallel()

		bad := TechRule("broken", []string{"src/[", "**/*.go"}, nil)
		s := NewRuleSet([]*Rule{bad})

		diags := s.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, DiagInvalidPattern, diags[0].Kind)
		assert.Equal(t, "broken", diags[0].Rule)
		assert.Contains(t, diags[0].Detail, "src/[")

		// The valid pattern still matches.
		matched := s.Resolve(Context{Path: "pkg/main.go"})
		assert.Equal(t, []string{"broken"}, ruleNames(matched))
	})

	t.Run("DeadRule", func(t *testing.T) {
		t.Parallel()

		s := NewRuleSet([]*Rule{NewRule("orphan", []string{"body"})})

		diags := s.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, DiagDeadRule, diags[0].Kind)
		assert.Equal(t, "orphan", diags[0].Rule)
	})

	t.Run("DeadRuleAllPatternsInvalid", func(t *testing.T) {
		t.Parallel()

		// Only invalid patterns, no triggers: the rule can never
		// match and is flagged dead on top of the pattern problems.
		bad := TechRule("hollow", []string{"src/[", "pkg/["}, nil)
		s := NewRuleSet([]*Rule{bad})

		diags := s.Diagnostics()
		require.Len(t, diags, 3)
		kinds := make([]DiagnosticKind, len(diags))
		for i, d := range diags {
			kinds[i] = d.Kind
		}
		assert.ElementsMatch(t, []DiagnosticKind{
			DiagInvalidPattern, DiagInvalidPattern, DiagDeadRule,
		}, kinds)

		assert.Empty(t, s.Resolve(Context{Path: "src/main.go"}))
	})

	t.Run("DuplicateNameLastWins", func(t *testing.T) {
		t.Parallel()

		first := TechRule("go-style", []string{"**/*.go"}, []string{"old"})
		second := TechRule("go-style", []string{"**/*.go"}, []string{"new"})
		s := NewRuleSet([]*Rule{first, second})

		assert.Equal(t, 1, s.Len())
		require.NotNil(t, s.Find("go-style"))
		assert.Equal(t, []string{"new"}, s.Find("go-style").Content)

		diags := s.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, DiagDuplicateName, diags[0].Kind)
	})
}

func TestRuleSet_Resolve(t *testing.T) {
	t.Parallel()

	s := NewRuleSet(testRules())

	t.Run("AlwaysInjectMatchesEmptyContext", func(t *testing.T) {
		t.Parallel()

		matched := s.Resolve(Context{})
		assert.Equal(t, []string{"conventions"}, ruleNames(matched))
	})

	t.Run("PathMatches", func(t *testing.T) {
		t.Parallel()

		matched := s.Resolve(Context{Path: "src/billing/invoice.go"})
		assert.Equal(t, []string{"conventions", "go-style", "billing"}, ruleNames(matched))
	})

	t.Run("TriggerMatchesCaseInsensitive", func(t *testing.T) {
		t.Parallel()

		matched := s.Resolve(Context{Triggers: []string{"AUTH"}})
		assert.Equal(t, []string{"conventions", "security"}, ruleNames(matched))
	})

	t.Run("PathAndTriggersCombine", func(t *testing.T) {
		t.Parallel()

		matched := s.Resolve(Context{
			Path:     "api/handlers/login.go",
			Triggers: []string{"crypto"},
		})
		assert.Equal(t, []string{"conventions", "go-style", "gin", "security"}, ruleNames(matched))
	})

	t.Run("NoMatchBeyondAlwaysInject", func(t *testing.T) {
		t.Parallel()

		matched := s.Resolve(Context{Path: "README.txt", Triggers: []string{"deploy"}})
		assert.Equal(t, []string{"conventions"}, ruleNames(matched))
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()

		ctx := Context{Path: "src/billing/handlers/pay.go", Triggers: []string{"gin", "auth"}}
		first := s.Resolve(ctx)
		for range 5 {
			assert.Equal(t, first, s.Resolve(ctx))
		}
	})
}

func TestRuleSet_ResolveOrdering(t *testing.T) {
	t.Parallel()

	t.Run("PriorityDescends", func(t *testing.T) {
		t.Parallel()

		low := TechRule("low", []string{"**/*"}, nil)
		low.Priority = 10
		high := TechRule("high", []string{"**/*"}, nil)
		high.Priority = 99
		s := NewRuleSet([]*Rule{low, high})

		matched := s.Resolve(Context{Path: "x"})
		assert.Equal(t, []string{"high", "low"}, ruleNames(matched))
	})

	t.Run("CategoryBreaksPriorityTie", func(t *testing.T) {
		t.Parallel()

		dom := DomainRule("payments", []string{"pay"}, nil)
		dom.Priority = 70
		grp := GroupRule("services", []string{"**/*"}, nil)
		s := NewRuleSet([]*Rule{dom, grp})

		// Both priority 70; group ranks above domain.
		matched := s.Resolve(Context{Path: "svc/main.go", Triggers: []string{"pay"}})
		assert.Equal(t, []string{"services", "payments"}, ruleNames(matched))
	})

	t.Run("NameBreaksFullTie", func(t *testing.T) {
		t.Parallel()

		zeta := ModuleRule("zeta", []string{"**/*"}, nil)
		alpha := ModuleRule("alpha", []string{"**/*"}, nil)
		s := NewRuleSet([]*Rule{zeta, alpha})

		matched := s.Resolve(Context{Path: "main.go"})
		assert.Equal(t, []string{"alpha", "zeta"}, ruleNames(matched))
	})
}

func TestRuleSet_ZeroValue(t *testing.T) {
	t.Parallel()

	var s RuleSet
	assert.Empty(t, s.Resolve(Context{Path: "main.go"}))
	assert.Equal(t, 0, s.Len())
}
