package model

import (
	"fmt"
	"sort"
	"strings"
)

// OpRef names one operation of one job.
type OpRef struct {
	Job int `json:"job"`
	Op  int `json:"op"`
}

func (r OpRef) String() string {
	return fmt.Sprintf("%d.%d", r.Job, r.Op)
}

// KnownETPC returns the constraints whose fore and hind operations can both exist
// in the instance. The remaining constraints are returned separately.
func (in *Instance) KnownETPC() (known, unknown []ETPCConstraint) {
	for _, c := range in.Events.ETPC {
		if c.ForeOp < in.OperationCount(c.ForeJob) && c.HindOp < in.OperationCount(c.HindJob) &&
			c.ForeOp >= 0 && c.HindOp >= 0 {
			known = append(known, c)
			continue
		}
		unknown = append(unknown, c)
	}
	return known, unknown
}

// checkPrecedence builds the precedence graph over every operation of the
// instance (intra-job order plus ETPC edges) and uses Kahn's algorithm to
// reject cycles, which would leave the involved operations waiting forever.
func checkPrecedence(in *Instance) error {
	known, _ := in.KnownETPC()
	if len(known) == 0 {
		return nil
	}

	// forward[A] = [B, C] means A must finish before B and C may start.
	forward := make(map[OpRef][]OpRef)
	inDegree := make(map[OpRef]int)

	for j := 0; j < in.JobCount(); j++ {
		n := in.OperationCount(j)
		for k := 0; k < n; k++ {
			ref := OpRef{Job: j, Op: k}
			if _, ok := inDegree[ref]; !ok {
				inDegree[ref] = 0
			}
			if k+1 < n {
				next := OpRef{Job: j, Op: k + 1}
				forward[ref] = append(forward[ref], next)
				inDegree[next]++
			}
		}
	}
	for _, c := range known {
		fore := OpRef{Job: c.ForeJob, Op: c.ForeOp}
		hind := OpRef{Job: c.HindJob, Op: c.HindOp}
		if fore == hind {
			return fmt.Errorf("constraint %s binds an operation to itself", c)
		}
		forward[fore] = append(forward[fore], hind)
		inDegree[hind]++
	}

	var queue []OpRef
	for ref, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, ref)
		}
	}

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++
		for _, succ := range forward[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if visited != len(inDegree) {
		var cycle []string
		for ref, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, ref.String())
			}
		}
		sort.Strings(cycle)
		return fmt.Errorf("precedence cycle involving operations: %s", strings.Join(cycle, ", "))
	}
	return nil
}
