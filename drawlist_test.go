package sprig

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func mustFormats(t testing.TB, s string) []AttributeFormat {
	t.Helper()
	f, err := ParseAttributeFormats(s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func newTestBatch(t testing.TB) *Batch {
	t.Helper()
	b, err := NewBatch(Config{Domain: DomainConfig{InitialCapacity: 16}})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// addTri adds a three-vertex triangle interfacer.
func addTri(t testing.TB, b *Batch, at Placement, st State) *Interfacer {
	t.Helper()
	it, err := b.Add(VertexSpec{
		Formats: mustFormats(t, "position:2f"),
		Count:   3,
		Mode:    ModeTriangles,
		Indices: []uint32{0, 1, 2},
		State:   st,
		At:      at,
	})
	if err != nil {
		t.Fatal(err)
	}
	return it
}

// drawnOrder returns the interfacers in the order their first index appears
// in the compiled index buffer.
func drawnOrder(l *DrawList, its []*Interfacer) []*Interfacer {
	var out []*Interfacer
	for _, ix := range l.Indices() {
		for _, it := range its {
			if int(ix) >= it.Start() && int(ix) < it.Start()+it.Count() {
				if !slices.Contains(out, it) {
					out = append(out, it)
				}
				break
			}
		}
	}
	return out
}

func countCalls(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestDrawList_SiblingOrder(t *testing.T) {
	b := newTestBatch(t)
	tex := newTestTexture()
	orders := []int{2, 0, 1, 2, 0}
	var its []*Interfacer
	byIface := make(map[*Interfacer]int)
	for i, o := range orders {
		// Distinct textures on equal orders so the chain sort has work to do.
		st := NewState(TexturePart(0, tex))
		if i%2 == 1 {
			st = NewState(TexturePart(0, newTestTexture()))
		}
		g, err := b.Default().AddGroup(RootGroup, o, State{})
		if err != nil {
			t.Fatal(err)
		}
		it := addTri(t, b, Placement{Parent: g}, st)
		its = append(its, it)
		byIface[it] = o
	}

	if err := b.Default().Compile(); err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, it := range drawnOrder(b.Default(), its) {
		got = append(got, byIface[it])
	}
	want := []int{0, 0, 1, 2, 2}
	if !slices.Equal(got, want) {
		t.Errorf("draw order = %v, want %v", got, want)
	}
	if n := len(b.Default().Indices()); n != 15 {
		t.Errorf("indices = %d, want 15", n)
	}
}

func TestDrawList_EqualOrderLeavesShareRun(t *testing.T) {
	b := newTestBatch(t)
	tex := newTestTexture()
	st := NewState(TexturePart(0, tex))
	for range 4 {
		addTri(t, b, Placement{}, st)
	}
	var r Recorder
	if err := b.Draw(&r); err != nil {
		t.Fatal(err)
	}
	s := b.Default().Stats()
	if s.DrawCalls != 1 {
		t.Errorf("DrawCalls = %d, want 1: %v", s.DrawCalls, r.Calls)
	}
	if s.BufferBinds != 1 {
		t.Errorf("BufferBinds = %d, want 1", s.BufferBinds)
	}
	// program, blend and texture
	if s.StateChanges != 3 {
		t.Errorf("StateChanges = %d, want 3: %v", s.StateChanges, r.Calls)
	}
	if !strings.HasPrefix(r.Calls[0], "bind ") {
		t.Errorf("first call = %q, want bind", r.Calls[0])
	}
	if len(r.Indices) != 12 {
		t.Errorf("indices = %d, want 12", len(r.Indices))
	}
}

func TestDrawList_StateDiffMinimal(t *testing.T) {
	b := newTestBatch(t)
	a, c := newTestTexture(), newTestTexture()
	sa := NewState(TexturePart(0, a))
	sc := NewState(TexturePart(0, c))
	addTri(t, b, Placement{}, sa)
	addTri(t, b, Placement{}, sc)
	addTri(t, b, Placement{}, sa)

	var r Recorder
	if err := b.Draw(&r); err != nil {
		t.Fatal(err)
	}
	s := b.Default().Stats()
	if s.DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2: %v", s.DrawCalls, r.Calls)
	}
	// program, blend, first texture, second texture
	if s.StateChanges != 4 {
		t.Errorf("StateChanges = %d, want 4: %v", s.StateChanges, r.Calls)
	}
	if got := countCalls(r.Calls, "apply texture"); got != 2 {
		t.Errorf("texture applies = %d, want 2", got)
	}
	if got := countCalls(r.Calls, "apply program"); got != 1 {
		t.Errorf("program applies = %d, want 1", got)
	}
}

func TestDrawList_NoRedundantApply(t *testing.T) {
	b := newTestBatch(t)
	tex := newTestTexture()
	var its []*Interfacer
	for i := range 6 {
		st := NewState(TexturePart(0, tex), BlendPart(BlendMode(i%3)))
		its = append(its, addTri(t, b, Placement{Order: i % 2}, st))
	}
	if err := b.Default().Compile(); err != nil {
		t.Fatal(err)
	}
	cur := State{}
	var parts []StatePart
	for _, op := range b.Default().Ops() {
		switch op.Kind {
		case OpApplyState:
			for _, p := range parts {
				if p.ID() == op.Part.ID() {
					t.Errorf("%v applied twice within one run", op.Part)
				}
			}
			if cur.Has(op.Part.ID()) {
				t.Errorf("%v applied while already current", op.Part)
			}
			parts = append(parts, op.Part)
		case OpDrawIndexed:
			cur = cur.Merge(NewState(parts...))
			parts = parts[:0]
		}
	}
	if got := len(drawnOrder(b.Default(), its)); got != 6 {
		t.Errorf("drawn = %d, want 6", got)
	}
}

func TestDrawList_IndicesOffsetByStart(t *testing.T) {
	b := newTestBatch(t)
	first := addTri(t, b, Placement{}, State{})
	second := addTri(t, b, Placement{Order: 1}, State{})
	if second.Start() != first.Start()+3 {
		t.Fatalf("second start = %d, want %d", second.Start(), first.Start()+3)
	}
	if err := b.Default().Compile(); err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 1, 2, 3, 4, 5}
	if got := b.Default().Indices(); !slices.Equal(got, want) {
		t.Errorf("indices = %v, want %v", got, want)
	}
}

func TestDrawList_ModeChangeFlushes(t *testing.T) {
	b := newTestBatch(t)
	addTri(t, b, Placement{}, State{})
	lines := addTri(t, b, Placement{}, State{})
	if err := lines.SetMode(ModeLines); err != nil {
		t.Fatal(err)
	}
	if err := b.Default().Compile(); err != nil {
		t.Fatal(err)
	}
	s := b.Default().Stats()
	if s.DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2", s.DrawCalls)
	}
	if s.StateChanges != 2 {
		t.Errorf("StateChanges = %d, want 2", s.StateChanges)
	}
}

func TestDrawList_DomainChangeRebinds(t *testing.T) {
	b := newTestBatch(t)
	addTri(t, b, Placement{}, State{})
	_, err := b.Add(VertexSpec{
		Formats: mustFormats(t, "position:2f,color:4Bn"),
		Count:   3,
		Indices: []uint32{0, 1, 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Default().Compile(); err != nil {
		t.Fatal(err)
	}
	s := b.Default().Stats()
	if s.BufferBinds != 2 {
		t.Errorf("BufferBinds = %d, want 2", s.BufferBinds)
	}
	if s.DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2", s.DrawCalls)
	}
	if b.Domains() != 2 {
		t.Errorf("Domains = %d, want 2", b.Domains())
	}
}

func TestDrawList_ProgramChangeRebinds(t *testing.T) {
	b := newTestBatch(t)
	p := NewProgramFromShader("tint", nil)
	addTri(t, b, Placement{}, State{})
	addTri(t, b, Placement{Order: 1}, NewState(ProgramPart(p)))
	var r Recorder
	if err := b.Draw(&r); err != nil {
		t.Fatal(err)
	}
	if got := countCalls(r.Calls, "bind "); got != 2 {
		t.Errorf("binds = %d, want 2: %v", got, r.Calls)
	}
	if !strings.HasSuffix(r.Calls[len(r.Calls)-1], "triangles 3 3") {
		t.Errorf("last call = %q, want draw of second triangle", r.Calls[len(r.Calls)-1])
	}
}

func TestDrawList_DanglingGroupPruned(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	empty, err := l.AddGroup(RootGroup, 0, State{})
	if err != nil {
		t.Fatal(err)
	}
	full, err := l.AddGroup(RootGroup, 1, State{})
	if err != nil {
		t.Fatal(err)
	}
	addTri(t, b, Placement{Parent: full}, State{})

	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if l.Valid(empty) {
		t.Error("empty group should be freed")
	}
	if !l.InTree(full) {
		t.Error("group with a visible leaf should stay in the tree")
	}
	// root, full, leaf
	if got := l.LiveGroups(); got != 3 {
		t.Errorf("LiveGroups = %d, want 3", got)
	}
	if got := l.Stats().Pruned; got != 1 {
		t.Errorf("Pruned = %d, want 1", got)
	}

	if _, err := b.Add(VertexSpec{
		Formats: mustFormats(t, "position:2f"),
		Count:   3,
		Indices: []uint32{0, 1, 2},
		At:      Placement{Parent: empty},
	}); !errors.Is(err, ErrStaleGroup) {
		t.Errorf("Add under pruned group = %v, want ErrStaleGroup", err)
	}
	if _, err := l.AddGroup(empty, 0, State{}); !errors.Is(err, ErrStaleGroup) {
		t.Errorf("AddGroup under pruned group = %v, want ErrStaleGroup", err)
	}
	g, err := l.AddGroup(RootGroup, 0, State{})
	if err != nil {
		t.Fatal(err)
	}
	if g.index != empty.index {
		t.Errorf("new group slot = %d, want recycled slot %d", g.index, empty.index)
	}
}

func TestDrawList_NestedDanglingChain(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	outer, _ := l.AddGroup(RootGroup, 0, State{})
	inner, err := l.AddGroup(outer, 0, State{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if l.Valid(outer) || l.Valid(inner) {
		t.Error("empty chain should be freed")
	}
	if got := l.LiveGroups(); got != 1 {
		t.Errorf("LiveGroups = %d, want 1", got)
	}
	if got := len(l.tree.unused); got != 2 {
		t.Errorf("unused slots = %d, want 2", got)
	}
}

func TestDrawList_GroupArenaFlatAcrossCycles(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	cycle := func() {
		g, err := l.AddGroup(RootGroup, 0, State{})
		if err != nil {
			t.Fatal(err)
		}
		it := addTri(t, b, Placement{Parent: g}, State{})
		if err := l.Compile(); err != nil {
			t.Fatal(err)
		}
		if err := it.Delete(); err != nil {
			t.Fatal(err)
		}
		if err := l.Compile(); err != nil {
			t.Fatal(err)
		}
		if l.Valid(g) {
			t.Error("emptied group should be freed")
		}
	}
	cycle()
	n := len(l.tree.nodes)
	for range 50 {
		cycle()
	}
	if got := len(l.tree.nodes); got != n {
		t.Errorf("group arena = %d nodes, want %d", got, n)
	}
}

func TestDrawList_HiddenLeafPrunedAndReattached(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g, _ := l.AddGroup(RootGroup, 0, State{})
	it := addTri(t, b, Placement{Parent: g}, State{})
	if err := it.SetVisible(false); err != nil {
		t.Fatal(err)
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if l.Valid(it.Group()) {
		t.Error("hidden leaf should be freed")
	}
	if l.InTree(g) {
		t.Error("group of a hidden leaf should be pruned")
	}
	if !l.Valid(g) {
		t.Error("group with a hidden member should stay valid")
	}
	if len(l.Indices()) != 0 {
		t.Errorf("indices = %v, want none", l.Indices())
	}
	if got := l.Stats().Pruned; got != 2 {
		t.Errorf("Pruned = %d, want 2", got)
	}
	// pruned groups are skipped entirely
	_ = l.Compile()
	l.MarkDirty()
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if got := l.Stats().Pruned; got != 0 {
		t.Errorf("second Pruned = %d, want 0", got)
	}

	if err := it.SetVisible(true); err != nil {
		t.Fatal(err)
	}
	if !l.Valid(it.Group()) {
		t.Fatal("showing should re-attach the leaf")
	}
	if p, _ := l.Parent(it.Group()); p != g {
		t.Errorf("parent = %v, want %v", p, g)
	}
	if !l.InTree(g) {
		t.Error("showing a member should put the group back in the tree")
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if len(l.Indices()) != 3 {
		t.Errorf("indices = %v, want 3", l.Indices())
	}
}

func TestDrawList_HiddenMemberKeepsNestedGroups(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	tex := newTestTexture()
	outer, _ := l.AddGroup(RootGroup, 0, NewState(TexturePart(0, tex)))
	inner, _ := l.AddGroup(outer, 0, State{})
	it := addTri(t, b, Placement{Parent: inner}, State{})
	_ = it.SetVisible(false)
	_ = l.Compile()
	if l.InTree(outer) || l.InTree(inner) {
		t.Error("chain above a hidden member should be pruned")
	}

	_ = it.SetVisible(true)
	if !l.InTree(inner) || !l.InTree(outer) {
		t.Error("showing the member should relink the whole chain")
	}
	var r Recorder
	if err := l.Draw(&r); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(r.Calls, "apply "+TexturePart(0, tex).String()) {
		t.Errorf("calls = %v, want the outer group's texture", r.Calls)
	}
}

func TestDrawList_DeletingParkedMemberFreesGroups(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	outer, _ := l.AddGroup(RootGroup, 0, State{})
	inner, _ := l.AddGroup(outer, 0, State{})
	it := addTri(t, b, Placement{Parent: inner}, State{})
	_ = it.SetVisible(false)
	_ = l.Compile()
	if !l.Valid(outer) || !l.Valid(inner) {
		t.Fatal("groups above a hidden member should stay valid")
	}
	if err := it.Delete(); err != nil {
		t.Fatal(err)
	}
	if l.Valid(outer) || l.Valid(inner) {
		t.Error("groups should be freed once nothing is parked below them")
	}
	if got := len(l.tree.nodes[rootGroup].detached); got != 0 {
		t.Errorf("root detached = %d, want 0", got)
	}
}

func TestDrawList_RemoveGroupDetachesHiddenMembers(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g, _ := l.AddGroup(RootGroup, 0, State{})
	shown := addTri(t, b, Placement{Parent: g}, State{})
	hidden := addTri(t, b, Placement{Parent: g}, State{})
	_ = hidden.SetVisible(false)
	_ = l.Compile()
	if err := l.RemoveGroup(g); err != nil {
		t.Fatal(err)
	}
	if err := hidden.SetVisible(true); err != nil {
		t.Fatal(err)
	}
	if l.Valid(hidden.Group()) {
		t.Error("hidden member should stay detached")
	}
	if l.Valid(shown.Group()) {
		t.Error("visible member should be detached")
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if len(l.Indices()) != 0 {
		t.Errorf("indices = %v, want none", l.Indices())
	}
	if err := hidden.Attach(Placement{}); err != nil {
		t.Fatal(err)
	}
	_ = l.Compile()
	if len(l.Indices()) != 3 {
		t.Errorf("indices after attach = %d, want 3", len(l.Indices()))
	}
}

func TestDrawList_RemovePrunedGroup(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	outer, _ := l.AddGroup(RootGroup, 0, State{})
	inner, _ := l.AddGroup(outer, 0, State{})
	it := addTri(t, b, Placement{Parent: inner}, State{})
	_ = it.SetVisible(false)
	_ = l.Compile()
	if err := l.RemoveGroup(inner); err != nil {
		t.Fatal(err)
	}
	if l.Valid(outer) {
		t.Error("outer group kept only for inner should be freed")
	}
	if err := it.Delete(); err != nil {
		t.Fatal(err)
	}
}

func TestDrawList_GroupStateInherited(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	tex := newTestTexture()
	g, _ := l.AddGroup(RootGroup, 0, NewState(TexturePart(0, tex), BlendPart(BlendAdd)))
	addTri(t, b, Placement{Parent: g}, State{})
	addTri(t, b, Placement{Parent: g}, NewState(BlendPart(BlendMultiply)))

	var r Recorder
	if err := l.Draw(&r); err != nil {
		t.Fatal(err)
	}
	want := TexturePart(0, tex).String()
	if got := countCalls(r.Calls, "apply "+want); got != 1 {
		t.Errorf("%s applied %d times, want 1: %v", want, got, r.Calls)
	}
	if got := countCalls(r.Calls, "apply blend(normal)"); got != 0 {
		t.Errorf("base blend should be overridden by the group: %v", r.Calls)
	}
	if got := countCalls(r.Calls, "apply blend"); got != 2 {
		t.Errorf("blend applies = %d, want 2: %v", got, r.Calls)
	}

	if err := l.SetGroupState(g, State{}); err != nil {
		t.Fatal(err)
	}
	if !l.Dirty() {
		t.Error("SetGroupState should mark the list dirty")
	}
}

func TestDrawList_RemoveGroupDetaches(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g, _ := l.AddGroup(RootGroup, 0, State{})
	sub, _ := l.AddGroup(g, 0, State{})
	it := addTri(t, b, Placement{Parent: sub}, State{})
	if err := l.RemoveGroup(g); err != nil {
		t.Fatal(err)
	}
	if l.Valid(g) || l.Valid(sub) {
		t.Error("removed subtree should be invalid")
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if len(l.Indices()) != 0 {
		t.Errorf("indices = %v, want none", l.Indices())
	}
	if it.Deleted() {
		t.Error("RemoveGroup must not delete interfacers")
	}
	if err := it.SetVisible(false); err != nil {
		t.Fatal(err)
	}
	if err := it.SetVisible(true); err != nil {
		t.Fatal(err)
	}
	if l.Valid(it.Group()) {
		t.Error("detached interfacer should not re-attach on its own")
	}
	if err := it.Attach(Placement{}); err != nil {
		t.Fatal(err)
	}
	if err := l.Compile(); err != nil {
		t.Fatal(err)
	}
	if len(l.Indices()) != 3 {
		t.Errorf("indices after attach = %d, want 3", len(l.Indices()))
	}
}

func TestDrawList_GroupErrors(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g, _ := l.AddGroup(RootGroup, 0, State{})
	it := addTri(t, b, Placement{Parent: g}, State{})

	if _, err := l.AddGroup(it.Group(), 0, State{}); !errors.Is(err, ErrLeafGroup) {
		t.Errorf("AddGroup under leaf = %v, want ErrLeafGroup", err)
	}
	if err := l.RemoveGroup(RootGroup); !errors.Is(err, ErrRootGroup) {
		t.Errorf("RemoveGroup(root) = %v, want ErrRootGroup", err)
	}
	if err := l.SetGroupOrder(RootGroup, 3); !errors.Is(err, ErrRootGroup) {
		t.Errorf("SetGroupOrder(root) = %v, want ErrRootGroup", err)
	}
	if err := l.RemoveGroup(g); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddGroup(g, 0, State{}); !errors.Is(err, ErrStaleGroup) {
		t.Errorf("AddGroup under removed = %v, want ErrStaleGroup", err)
	}
	if err := l.RemoveGroup(g); !errors.Is(err, ErrStaleGroup) {
		t.Errorf("second RemoveGroup = %v, want ErrStaleGroup", err)
	}
	if err := l.SetGroupState(g, State{}); !errors.Is(err, ErrStaleGroup) {
		t.Errorf("SetGroupState on removed = %v, want ErrStaleGroup", err)
	}
}

func TestDrawList_SetGroupOrder(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g1, _ := l.AddGroup(RootGroup, 0, State{})
	g2, _ := l.AddGroup(RootGroup, 1, State{})
	first := addTri(t, b, Placement{Parent: g1}, State{})
	second := addTri(t, b, Placement{Parent: g2}, State{})
	_ = l.Compile()
	if got := drawnOrder(l, []*Interfacer{first, second}); got[0] != first {
		t.Fatal("g1 should draw first")
	}
	if err := l.SetGroupOrder(g1, 2); err != nil {
		t.Fatal(err)
	}
	_ = l.Compile()
	if got := drawnOrder(l, []*Interfacer{first, second}); got[0] != second {
		t.Error("g2 should draw first after reorder")
	}
}

type reentrantDriver struct {
	Recorder
	list *DrawList
	err  error
}

func (d *reentrantDriver) DrawIndexed(mode DrawMode, start, count int) {
	d.Recorder.DrawIndexed(mode, start, count)
	d.err = d.list.Draw(&d.Recorder)
}

func TestDrawList_Reentrant(t *testing.T) {
	b := newTestBatch(t)
	addTri(t, b, Placement{}, State{})
	d := &reentrantDriver{list: b.Default()}
	if err := b.Draw(d); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(d.err, ErrReentrantDraw) {
		t.Errorf("nested Draw = %v, want ErrReentrantDraw", d.err)
	}
	if err := b.Draw(d); err != nil {
		t.Errorf("Draw after replay = %v, want nil", err)
	}
}

func TestDrawList_DirtyTracking(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	it := addTri(t, b, Placement{}, State{})
	if !l.Dirty() {
		t.Error("new list should be dirty")
	}
	_ = l.Compile()
	if l.Dirty() {
		t.Error("compiled list should be clean")
	}
	_ = it.SetState(State{})
	if l.Dirty() {
		t.Error("setting an equal state should not dirty the list")
	}
	_ = it.SetState(NewState(BlendPart(BlendAdd)))
	if !l.Dirty() {
		t.Error("state change should dirty the list")
	}
	_ = l.Compile()
	_ = it.SetVisible(false)
	if !l.Dirty() {
		t.Error("visibility change should dirty the list")
	}
}

func TestDrawList_String(t *testing.T) {
	b := newTestBatch(t)
	l := b.Default()
	g, _ := l.AddGroup(RootGroup, 4, State{})
	addTri(t, b, Placement{Parent: g}, State{})
	s := l.String()
	if !strings.Contains(s, "group order=4") || !strings.Contains(s, "leaf order=0") {
		t.Errorf("String =\n%s", s)
	}
}
