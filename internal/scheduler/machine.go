package scheduler

// machine tracks one machine. A machine is broken while t < brokenUntil and is
// never busy while broken.
type machine struct {
	index int

	busy     bool
	job, op  int
	start    int
	finishAt int

	brokenUntil int // 0 when not broken
	idleSince   int
}

func (m *machine) broken(t int) bool {
	return m.brokenUntil > t
}

func (m *machine) available(t int) bool {
	return !m.busy && !m.broken(t)
}

func (m *machine) assign(j *job, pt, t int) {
	m.busy = true
	m.job, m.op = j.index, j.cursor
	m.start = t
	m.finishAt = t + pt
}

// load returns the processing time still owed to the operation running at t.
func (m *machine) load(t int) int {
	if !m.busy {
		return 0
	}
	return max(m.finishAt-t, 0)
}

// release frees the machine at time t.
func (m *machine) release(t int) {
	m.busy = false
	m.job, m.op = -1, -1
	m.idleSince = t
}

// breakDown extends the outage to until. It reports whether an operation was
// running and had to be preempted; its progress is discarded.
func (m *machine) breakDown(until, t int) (preempted bool) {
	m.brokenUntil = max(m.brokenUntil, until)
	if !m.busy {
		return false
	}
	m.release(t)
	return true
}

// repair returns a machine whose outage ended at or before t to service.
func (m *machine) repair(t int) bool {
	if m.brokenUntil == 0 || m.brokenUntil > t {
		return false
	}
	m.idleSince = m.brokenUntil
	m.brokenUntil = 0
	return true
}
