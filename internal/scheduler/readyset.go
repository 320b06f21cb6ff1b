package scheduler

import "slices"

// readySet holds the indices of jobs whose current operation waits for a
// machine, kept in ascending order so dispatch visits jobs deterministically.
type readySet []int

func (r *readySet) insert(job int) {
	i, found := slices.BinarySearch(*r, job)
	if found {
		return
	}
	*r = slices.Insert(*r, i, job)
}

func (r *readySet) remove(job int) bool {
	i, found := slices.BinarySearch(*r, job)
	if !found {
		return false
	}
	*r = slices.Delete(*r, i, i+1)
	return true
}

func (r readySet) contains(job int) bool {
	_, found := slices.BinarySearch(r, job)
	return found
}
