package monitor

import (
	"sync"
	"testing"
)

// stubTransport records sends for assertions.
type stubTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (s *stubTransport) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	return nil
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestRegistry_AddGeneratesNames(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")

	if m1.Name() != "LM_1" {
		t.Errorf("first name = %q, want LM_1", m1.Name())
	}
	if m2.Name() != "LM_2" {
		t.Errorf("second name = %q, want LM_2", m2.Name())
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestRegistry_AddKeepsProvidedName(t *testing.T) {
	r := NewRegistry(false, nil)

	m := r.Add(&stubTransport{}, "bay-left")
	if m.Name() != "bay-left" {
		t.Errorf("name = %q, want bay-left", m.Name())
	}
}

func TestRegistry_NamesStayUniqueAfterRemoval(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	r.Add(&stubTransport{}, "")
	r.Remove(m1)

	m3 := r.Add(&stubTransport{}, "")
	if m3.Name() != "LM_3" {
		t.Errorf("name = %q, want LM_3", m3.Name())
	}
	if r.FindByName("LM_2") == nil {
		t.Error("LM_2 should still be registered")
	}
}

func TestRegistry_FirstMonitorActivated(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	if !r.IsActive(m1) {
		t.Error("first monitor should start active")
	}
	if r.MostRecent() != m1 {
		t.Error("first monitor should be most-recent")
	}

	m2 := r.Add(&stubTransport{}, "")
	if r.IsActive(m2) {
		t.Error("second monitor should not start active")
	}
}

func TestRegistry_ActivateSingleActive(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")

	r.Activate(m2)

	if r.IsActive(m1) {
		t.Error("m1 should have been deactivated")
	}
	if !r.IsActive(m2) {
		t.Error("m2 should be active")
	}
	if r.MostRecent() != m2 {
		t.Error("most-recent should be m2")
	}

	active := r.ActiveNames()
	if len(active) != 1 || active[0] != "LM_2" {
		t.Errorf("ActiveNames = %v, want [LM_2]", active)
	}
}

func TestRegistry_ActivateMultiActive(t *testing.T) {
	r := NewRegistry(true, nil)

	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")

	r.Activate(m2)

	if !r.IsActive(m1) {
		t.Error("m1 should stay active under multi-active policy")
	}
	if !r.IsActive(m2) {
		t.Error("m2 should be active")
	}
	if r.MostRecent() != m2 {
		t.Error("most-recent should be m2")
	}
}

func TestRegistry_ActivateNonMemberIgnored(t *testing.T) {
	r := NewRegistry(false, nil)
	m1 := r.Add(&stubTransport{}, "")

	other := NewRegistry(false, nil)
	stranger := other.Add(&stubTransport{}, "")

	r.Activate(stranger)

	if !r.IsActive(m1) {
		t.Error("m1 should still be active")
	}
	if r.MostRecent() != m1 {
		t.Error("most-recent should still be m1")
	}
}

func TestRegistry_RemoveActivePromotesEarliest(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")
	m3 := r.Add(&stubTransport{}, "")

	r.Activate(m2)
	r.Remove(m2)

	if !r.IsActive(m1) {
		t.Error("earliest remaining monitor should be promoted")
	}
	if r.IsActive(m3) {
		t.Error("m3 should not be promoted")
	}
	if r.MostRecent() != m1 {
		t.Error("most-recent should follow the promotion")
	}
}

func TestRegistry_RemoveInactiveLeavesActiveAlone(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")
	r.Activate(m2)

	r.Remove(m1)

	if !r.IsActive(m2) {
		t.Error("m2 should remain active")
	}
	if r.MostRecent() != m2 {
		t.Error("most-recent should remain m2")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_RemoveLastClearsMostRecent(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	r.Remove(m1)

	if r.MostRecent() != nil {
		t.Error("most-recent should be cleared when registry empties")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_RemoveNonMemberNoOp(t *testing.T) {
	r := NewRegistry(false, nil)
	m1 := r.Add(&stubTransport{}, "")

	other := NewRegistry(false, nil)
	stranger := other.Add(&stubTransport{}, "")

	r.Remove(stranger)

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if !r.IsActive(m1) {
		t.Error("m1 should be unaffected")
	}
}

func TestRegistry_FindByName(t *testing.T) {
	r := NewRegistry(false, nil)
	r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "putting-green")

	if got := r.FindByName("putting-green"); got != m2 {
		t.Error("FindByName should return the named monitor")
	}
	if got := r.FindByName("nope"); got != nil {
		t.Errorf("FindByName(nope) = %v, want nil", got)
	}
}

func TestRegistry_FindByPlayer(t *testing.T) {
	r := NewRegistry(false, nil)
	m1 := r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")

	r.SetPlayer(m2, "Alice")

	if got := r.FindByPlayer("Alice"); got != m2 {
		t.Error("FindByPlayer should return the attributed monitor")
	}
	if got := r.FindByPlayer("Bob"); got != nil {
		t.Errorf("FindByPlayer(Bob) = %v, want nil", got)
	}
	if got := r.FindByPlayer(""); got != nil {
		t.Error("empty player query should never match")
	}
	if r.Player(m1) != "" {
		t.Errorf("Player(m1) = %q, want empty", r.Player(m1))
	}
}

func TestRegistry_DeactivateAllKeepsHint(t *testing.T) {
	r := NewRegistry(false, nil)

	r.Add(&stubTransport{}, "")
	m2 := r.Add(&stubTransport{}, "")
	r.Activate(m2)

	r.DeactivateAll()

	if len(r.ActiveNames()) != 0 {
		t.Errorf("ActiveNames = %v, want none", r.ActiveNames())
	}
	if r.MostRecent() != m2 {
		t.Error("most-recent hint should survive DeactivateAll")
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(false, nil)

	m1 := r.Add(&stubTransport{}, "")
	r.Add(&stubTransport{}, "")
	r.SetPlayer(m1, "Alice")
	r.Touch(m1)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}
	if snap[0].Name != "LM_1" || snap[1].Name != "LM_2" {
		t.Errorf("snapshot order = %s, %s", snap[0].Name, snap[1].Name)
	}
	if snap[0].Player != "Alice" {
		t.Errorf("Player = %q, want Alice", snap[0].Player)
	}
	if !snap[0].Active {
		t.Error("LM_1 should be active in snapshot")
	}
	if snap[0].LastActivity.IsZero() {
		t.Error("LastActivity should be set after Touch")
	}
	if snap[1].LastActivity.IsZero() == false {
		t.Error("LM_2 LastActivity should be zero")
	}
}
