package resources

// State is the in-memory view of the terraform state of the working
// directories used during a run, keyed by root directory. Resources whose
// root is the same as their parent's share one State.
type State struct {
	roots map[string][]string
}

// NewState creates an empty state view.
func NewState() *State {
	return &State{roots: make(map[string][]string)}
}

// Has reports whether root was initialized or shown.
func (s *State) Has(root string) bool {
	_, ok := s.roots[root]
	return ok
}

// Set replaces the managed addresses of root.
func (s *State) Set(root string, addresses []string) {
	s.roots[root] = append([]string{}, addresses...)
}

// Add records address as managed in root.
func (s *State) Add(root, address string) {
	s.roots[root] = append(s.roots[root], address)
}

// Contains reports whether address is managed in root.
func (s *State) Contains(root, address string) bool {
	for _, a := range s.roots[root] {
		if a == address {
			return true
		}
	}
	return false
}
