package arbiter

import (
	"testing"

	"github.com/fairwaylabs/gsproxy/internal/monitor"
)

type nopTransport struct{}

func (nopTransport) Send([]byte) error { return nil }
func (nopTransport) Close() error      { return nil }

// twoMonitors returns a registry with LM_1 and LM_2 plus its snapshot.
func twoMonitors(t *testing.T, multiActive bool) (*monitor.Registry, []*monitor.Monitor) {
	t.Helper()
	r := monitor.NewRegistry(multiActive, nil)
	r.Add(nopTransport{}, "")
	r.Add(nopTransport{}, "")
	return r, r.Monitors()
}

func TestSelectForPlayer_DefaultRules(t *testing.T) {
	_, monitors := twoMonitors(t, false)
	e := NewEngine(nil, nil)

	tests := []struct {
		name string
		info map[string]any
		want string
	}{
		{name: "right handed", info: map[string]any{"Handed": "RH"}, want: "LM_1"},
		{name: "left handed", info: map[string]any{"Handed": "LH"}, want: "LM_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.SelectForPlayer(tt.info, monitors)
			if got == nil {
				t.Fatal("SelectForPlayer returned nil")
			}
			if got.Name() != tt.want {
				t.Errorf("monitor = %s, want %s", got.Name(), tt.want)
			}
		})
	}
}

func TestSelectForPlayer_RulePrecedence(t *testing.T) {
	_, monitors := twoMonitors(t, false)

	// Both rules match the info; the earlier one must win.
	rules := RuleSet{
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "2"},
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "1"},
	}
	e := NewEngine(rules, nil)

	got := e.SelectForPlayer(map[string]any{"Handed": "RH"}, monitors)
	if got == nil || got.Name() != "LM_2" {
		t.Errorf("monitor = %v, want LM_2 (earlier rule wins)", got)
	}
}

func TestSelectForPlayer_IncompleteRuleSkipped(t *testing.T) {
	_, monitors := twoMonitors(t, false)

	rules := RuleSet{
		{PlayerAttribute: "Handed", AttributeValue: "", MonitorPattern: "2"},
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "1"},
	}
	e := NewEngine(rules, nil)

	got := e.SelectForPlayer(map[string]any{"Handed": "RH"}, monitors)
	if got == nil || got.Name() != "LM_1" {
		t.Errorf("monitor = %v, want LM_1", got)
	}
}

func TestSelectForPlayer_RuleWithoutMonitorTriesNext(t *testing.T) {
	_, monitors := twoMonitors(t, false)

	// First rule passes the attribute test but no monitor contains "9".
	rules := RuleSet{
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "9"},
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "2"},
	}
	e := NewEngine(rules, nil)

	got := e.SelectForPlayer(map[string]any{"Handed": "RH"}, monitors)
	if got == nil || got.Name() != "LM_2" {
		t.Errorf("monitor = %v, want LM_2", got)
	}
}

func TestSelectForPlayer_FallbackFirstMonitor(t *testing.T) {
	_, monitors := twoMonitors(t, false)
	e := NewEngine(nil, nil)

	got := e.SelectForPlayer(map[string]any{"Handed": "ambidextrous"}, monitors)
	if got == nil || got.Name() != "LM_1" {
		t.Errorf("monitor = %v, want LM_1 fallback", got)
	}
}

func TestSelectForPlayer_NonStringAttributeNeverMatches(t *testing.T) {
	_, monitors := twoMonitors(t, false)

	rules := RuleSet{
		{PlayerAttribute: "id", AttributeValue: "2", MonitorPattern: "2"},
	}
	e := NewEngine(rules, nil)

	// JSON numbers decode as float64; the rule wants the string "2".
	got := e.SelectForPlayer(map[string]any{"id": float64(2)}, monitors)
	if got == nil || got.Name() != "LM_1" {
		t.Errorf("monitor = %v, want LM_1 fallback", got)
	}
}

func TestSelectForPlayer_EmptyInputs(t *testing.T) {
	_, monitors := twoMonitors(t, false)
	e := NewEngine(nil, nil)

	if got := e.SelectForPlayer(nil, monitors); got != nil {
		t.Errorf("nil info: got %v, want nil", got)
	}
	if got := e.SelectForPlayer(map[string]any{}, monitors); got != nil {
		t.Errorf("empty info: got %v, want nil", got)
	}
	if got := e.SelectForPlayer(map[string]any{"Handed": "RH"}, nil); got != nil {
		t.Errorf("no monitors: got %v, want nil", got)
	}
}

func TestSelectForPlayer_DoesNotMutateFlags(t *testing.T) {
	r, monitors := twoMonitors(t, false)
	m2 := monitors[1]
	r.Activate(m2)

	e := NewEngine(nil, nil)
	got := e.SelectForPlayer(map[string]any{"Handed": "RH"}, monitors)
	if got == nil || got.Name() != "LM_1" {
		t.Fatalf("monitor = %v, want LM_1", got)
	}

	// Selection alone must not move the active flag.
	if !r.IsActive(m2) {
		t.Error("m2 lost its active flag during selection")
	}
	if r.IsActive(monitors[0]) {
		t.Error("m1 gained an active flag during selection")
	}
}

func TestNewEngine_EmptyRulesUseDefaults(t *testing.T) {
	e := NewEngine(RuleSet{}, nil)

	rules := e.Rules()
	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2", len(rules))
	}
	if rules[0].AttributeValue != "RH" || rules[0].MonitorPattern != "1" {
		t.Errorf("rules[0] = %+v", rules[0])
	}
	if rules[1].AttributeValue != "LH" || rules[1].MonitorPattern != "2" {
		t.Errorf("rules[1] = %+v", rules[1])
	}
}
