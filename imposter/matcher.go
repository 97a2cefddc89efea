package imposter

// Verdict is the result of matching one event against the registry.
type Verdict struct {
	ShouldBlock bool
	MatchedKey  string
}

// Match looks up key by exact equality. The verdict is positive only when the key is watched and did is not one of
// the entry's excepted accounts.
func (r *Registry) Match(did, key string) Verdict {
	if key == "" {
		return Verdict{}
	}
	w, ok := r.entries[key]
	if !ok {
		return Verdict{}
	}
	if w.ExceptedDIDs[did] {
		return Verdict{}
	}
	return Verdict{ShouldBlock: true, MatchedKey: key}
}
