package bozorth3

// Matcher bundles the scratch one worker needs to score template pairs:
// a PairHolder and a State, both allocated once and cleared per match.
// A Matcher is not safe for concurrent use; give each goroutine its own.
type Matcher struct {
	holder *PairHolder
	state  *State
}

// NewMatcher allocates a matcher with fresh scratch.
func NewMatcher() *Matcher {
	return &Matcher{
		holder: NewPairHolder(),
		state:  NewState(),
	}
}

// Match scores a probe template against a gallery template. Both edge
// tables must have been produced by FindEdges/LimitEdges from the
// corresponding minutia sequences. The inputs are only read; all mutable
// state lives in the matcher.
//
// Templates with fewer than MinComputableMinutiae minutiae on either side
// score 0 without running the pipeline, as do template pairs that produce
// no candidate pairs at all.
func (m *Matcher) Match(probeMinutiae []Minutia, probeEdges []Edge, galleryMinutiae []Minutia, galleryEdges []Edge, format Format) int {
	if len(probeMinutiae) < MinComputableMinutiae || len(galleryMinutiae) < MinComputableMinutiae {
		return 0
	}

	m.holder.Clear()
	MatchEdgesIntoPairs(probeEdges, probeMinutiae, galleryEdges, galleryMinutiae, m.holder)
	if m.holder.Empty() {
		return 0
	}
	m.holder.Prepare()

	m.state.Clear()
	return matchScore(m.holder, m.state, probeMinutiae, galleryMinutiae, format)
}
