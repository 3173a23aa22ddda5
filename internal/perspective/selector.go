package perspective

// SelectCandidate chooses at most one candidate under the given policy.
// The boolean is false when nothing was selected, which is a normal outcome
// that sends the orchestrator down the no-candidate branch.
func SelectCandidate(candidates []Candidate, policy SelectionPolicy) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	if policy == PolicyStrict {
		return candidates[0], true
	}

	// Largest bounding box wins; strict comparison keeps the first on ties.
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].BoundingBoxArea > candidates[best].BoundingBoxArea {
			best = i
		}
	}
	return candidates[best], true
}
