package radio

// Registry owns every StreamSession. It is not safe for concurrent use; the
// Controller serializes access.
type Registry struct {
	store Store
}

// NewRegistry constructs a registry with a default in-memory store.
func NewRegistry() *Registry {
	return NewRegistryWithStore(NewInMemoryStore())
}

// NewRegistryWithStore constructs a registry that uses the given Store.
func NewRegistryWithStore(store Store) *Registry {
	return &Registry{store: store}
}

// Reconcile applies one arbitration result. URLs in winners get (or create)
// a session with the winner's loudness and position; tracked URLs missing
// from winners get a zero target and no emitter. Smoothed volume, state and
// handle are left to the Scheduler. Returns the number of sessions created.
func (r *Registry) Reconcile(winners map[string]Candidate) int {
	created := 0
	for url, cand := range winners {
		s, isNew := r.getOrCreate(url)
		if isNew {
			created++
		}
		pos := cand.Pos
		s.TargetVolume = clampVolume(cand.Target)
		s.Emitter = &pos
	}

	for _, url := range r.store.ListURLs() {
		if _, seen := winners[url]; seen {
			continue
		}
		s, _ := r.store.GetSession(url)
		s.TargetVolume = 0
		s.Emitter = nil
	}
	return created
}

// Get returns the session for url.
func (r *Registry) Get(url string) (*StreamSession, bool) {
	return r.store.GetSession(url)
}

// Remove evicts the session for url.
func (r *Registry) Remove(url string) {
	r.store.DeleteSession(url)
}

// URLs returns the tracked URLs in sorted order.
func (r *Registry) URLs() []string {
	return r.store.ListURLs()
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	return len(r.store.ListURLs())
}

// getOrCreate returns an existing session or creates an idle, silent one.
func (r *Registry) getOrCreate(url string) (*StreamSession, bool) {
	if s, ok := r.store.GetSession(url); ok {
		return s, false
	}
	s := &StreamSession{URL: url, State: StateIdle}
	r.store.SetSession(s)
	return s, true
}
