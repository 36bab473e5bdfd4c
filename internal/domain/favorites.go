package domain

// FavoriteSet is the set of favorite product ids of one owning session.
// IDs keeps insertion order so listings render stably.
type FavoriteSet struct {
	OwnerID string   `json:"owner_id"`
	Items   []string `json:"items"`
}

func NewFavoriteSet(ownerID string, ids ...string) FavoriteSet {
	f := FavoriteSet{OwnerID: ownerID}
	for _, id := range ids {
		f.Add(id)
	}
	return f
}

func (f FavoriteSet) Has(productID string) bool {
	return f.index(productID) >= 0
}

// Add is idempotent. It reports whether the set changed.
func (f *FavoriteSet) Add(productID string) bool {
	if productID == "" || f.Has(productID) {
		return false
	}
	f.Items = append(f.Items, productID)
	return true
}

// Remove reports whether the set changed and the index the id occupied.
func (f *FavoriteSet) Remove(productID string) (int, bool) {
	idx := f.index(productID)
	if idx < 0 {
		return -1, false
	}
	f.Items = append(f.Items[:idx:idx], f.Items[idx+1:]...)
	if len(f.Items) == 0 {
		f.Items = nil
	}
	return idx, true
}

// Restore re-inserts a removed id at its former index.
func (f *FavoriteSet) Restore(productID string, index int) {
	if f.Has(productID) {
		return
	}
	if index < 0 || index > len(f.Items) {
		index = len(f.Items)
	}
	f.Items = append(f.Items, "")
	copy(f.Items[index+1:], f.Items[index:])
	f.Items[index] = productID
}

// Union adds every id of other that is not a member yet.
func (f *FavoriteSet) Union(other FavoriteSet) {
	for _, id := range other.Items {
		f.Add(id)
	}
}

func (f FavoriteSet) IDs() []string {
	return append([]string(nil), f.Items...)
}

func (f FavoriteSet) Len() int {
	return len(f.Items)
}

func (f FavoriteSet) Clone() FavoriteSet {
	out := f
	out.Items = f.IDs()
	if len(out.Items) == 0 {
		out.Items = nil
	}
	return out
}

func (f FavoriteSet) index(productID string) int {
	for i, id := range f.Items {
		if id == productID {
			return i
		}
	}
	return -1
}
