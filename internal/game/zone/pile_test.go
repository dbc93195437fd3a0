package zone

import (
	"math/rand/v2"
	"testing"
)

func ids(refs []Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPile_PushAndPop(t *testing.T) {
	p := NewPile(NewRef("A"), NewRef("B"), NewRef("C"))

	r, ok := p.PopTop()
	if !ok || r.ID != "A" {
		t.Fatalf("Expected to pop A, got %v (ok=%v)", r, ok)
	}
	if got := ids(p.Cards()); !equalIDs(got, []string{"B", "C"}) {
		t.Errorf("Expected [B C], got %v", got)
	}

	p.PushTop(NewRef("X"))
	p.PushBottom(NewRef("Y"))
	if got := ids(p.Cards()); !equalIDs(got, []string{"X", "B", "C", "Y"}) {
		t.Errorf("Expected [X B C Y], got %v", got)
	}
}

func TestPile_PopEmpty(t *testing.T) {
	p := NewPile()
	if _, ok := p.PopTop(); ok {
		t.Error("Expected pop on empty pile to fail")
	}
	if p.Len() != 0 {
		t.Errorf("Expected empty pile, got %d cards", p.Len())
	}
}

func TestPile_InsertClamps(t *testing.T) {
	p := NewPile(NewRef("A"), NewRef("B"))
	p.Insert(-3, NewRef("top"))
	p.Insert(99, NewRef("bottom"))
	p.Insert(2, NewRef("mid"))

	want := []string{"top", "A", "mid", "B", "bottom"}
	if got := ids(p.Cards()); !equalIDs(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPile_DuplicatesRemovedByIndex(t *testing.T) {
	p := NewPile(NewRef("A"), NewRef("A"), NewRef("B"), NewRef("A"))

	r, ok := p.RemoveAt(1)
	if !ok || r.ID != "A" {
		t.Fatalf("Expected to remove the second A, got %v", r)
	}
	if p.Count("A") != 2 {
		t.Errorf("Expected 2 copies of A left, got %d", p.Count("A"))
	}
	if got := ids(p.Cards()); !equalIDs(got, []string{"A", "B", "A"}) {
		t.Errorf("Expected [A B A], got %v", got)
	}
}

func TestPile_Move(t *testing.T) {
	p := NewPile(NewRef("A"), NewRef("B"), NewRef("C"), NewRef("D"))

	if !p.Move(0, 3) {
		t.Fatal("Expected move to succeed")
	}
	if got := ids(p.Cards()); !equalIDs(got, []string{"B", "C", "D", "A"}) {
		t.Errorf("Expected [B C D A], got %v", got)
	}

	if !p.Move(2, 0) {
		t.Fatal("Expected move to succeed")
	}
	if got := ids(p.Cards()); !equalIDs(got, []string{"D", "B", "C", "A"}) {
		t.Errorf("Expected [D B C A], got %v", got)
	}

	if p.Move(0, 4) {
		t.Error("Expected out-of-range move to fail")
	}
}

func TestPile_ShufflePreservesContents(t *testing.T) {
	p := NewPile()
	for _, id := range []string{"A", "B", "C", "D", "E", "F", "A", "B"} {
		p.PushBottom(NewRef(id))
	}
	before := map[string]int{}
	for _, r := range p.Cards() {
		before[r.ID]++
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		p.Shuffle(rng)
	}

	if p.Len() != 8 {
		t.Fatalf("Expected 8 cards after shuffle, got %d", p.Len())
	}
	for id, n := range before {
		if p.Count(id) != n {
			t.Errorf("Expected %d copies of %s, got %d", n, id, p.Count(id))
		}
	}
}

func TestPile_CardsIsCopy(t *testing.T) {
	p := NewPile(NewRef("A"))
	cards := p.Cards()
	cards[0] = NewRef("Z")

	top, _ := p.Top()
	if top.ID != "A" {
		t.Errorf("Expected pile to be unaffected by caller mutation, got %s", top.ID)
	}
}
