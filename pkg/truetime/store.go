package truetime

// AnchorStore persists the last anchor so a restart can report true time
// before its first sync completes. Load reports false when nothing usable is
// stored.
type AnchorStore interface {
	Load() (Anchor, bool, error)
	Save(anchor Anchor) error
}
