package sprig

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats describes the most recent compilation of a draw list.
type Stats struct {
	Chains       int // ordered chains produced by the tree walk
	Items        int // visible interfacers
	DrawCalls    int // OpDrawIndexed operations
	StateChanges int // OpApplyState operations
	BufferBinds  int // OpBindBuffer operations
	Indices      int // index buffer length
	Pruned       int // hidden leaves and empty groups taken out of the tree

	CompileTime time.Duration
}

// debugLog writes compile statistics at debug level.
func (l *DrawList) debugLog(st Stats) {
	if !l.debug {
		return
	}
	Logger().WithFields(logrus.Fields{
		"list":    l.name,
		"chains":  st.Chains,
		"items":   st.Items,
		"draws":   st.DrawCalls,
		"states":  st.StateChanges,
		"binds":   st.BufferBinds,
		"indices": st.Indices,
		"pruned":  st.Pruned,
		"took":    st.CompileTime,
	}).Debug("sprig: draw list compiled")
}

// debugCheckBranch panics when the compiler reaches a group that owns an
// interfacer and is walked as a structural group.
func debugCheckBranch(n *groupNode) {
	if n.kind != groupBranch || n.iface != nil {
		panic(fmt.Sprintf("sprig debug: walking leaf group (seq %d) with %d children", n.seq, len(n.children)))
	}
}

// debugCheckTreeDepth warns if a group sits deeper than the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(t *groupTree, idx int32) {
	depth := 0
	for p := idx; p != noNode; p = t.nodes[p].parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		Logger().WithField("depth", depth).Warnf("sprig: group tree depth exceeds %d", debugMaxTreeDepth)
	}
}

// debugCheckChildCount warns if a group has more than 1000 direct children.
const debugMaxChildCount = 1000

func debugCheckChildCount(t *groupTree, idx int32) {
	if n := len(t.nodes[idx].children); n > debugMaxChildCount {
		Logger().WithField("children", n).Warnf("sprig: group has more than %d children", debugMaxChildCount)
	}
}
