package bundle

import "sort"

// IssueKind classifies a pack-graph integrity problem
type IssueKind string

const (
	IssueMissingProduct IssueKind = "missing_product"
	IssueMissingPack    IssueKind = "missing_pack"
	IssueCycle          IssueKind = "cycle"
)

// Issue is one integrity problem found on a pack
type Issue struct {
	PackID int       `json:"packId"`
	Kind   IssueKind `json:"kind"`
	RefID  int       `json:"refId"`
}

// Integrity lists references the resolver silently drops and packs that
// transitively include themselves. Issues are sorted by pack id.
func (c *Catalog) Integrity() []Issue {
	var issues []Issue
	for _, pack := range c.Packs() {
		for _, id := range pack.IncludedProductIDs {
			if _, ok := c.products[id]; !ok {
				issues = append(issues, Issue{PackID: pack.ID, Kind: IssueMissingProduct, RefID: id})
			}
		}
		for _, id := range pack.IncludedPackIDs {
			if _, ok := c.packs[id]; !ok {
				issues = append(issues, Issue{PackID: pack.ID, Kind: IssueMissingPack, RefID: id})
			}
		}
		if via, ok := c.reachesSelf(pack.ID); ok {
			issues = append(issues, Issue{PackID: pack.ID, Kind: IssueCycle, RefID: via})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].PackID < issues[j].PackID })
	return issues
}

// reachesSelf reports whether root is reachable from its own sub-packs and,
// if so, which direct sub-pack leads back to it.
func (c *Catalog) reachesSelf(root int) (int, bool) {
	pack, ok := c.packs[root]
	if !ok {
		return 0, false
	}
	visited := make(map[int]bool)
	var walk func(id int) bool
	walk = func(id int) bool {
		if id == root {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		p, ok := c.packs[id]
		if !ok {
			return false
		}
		for _, sub := range p.IncludedPackIDs {
			if walk(sub) {
				return true
			}
		}
		return false
	}
	for _, sub := range pack.IncludedPackIDs {
		if walk(sub) {
			return sub, true
		}
	}
	return 0, false
}
