package doc

// ResolvedBlock is what the rendering collaborator consumes: the block
// itself plus derived presentation data. For conditionals, Children holds
// the resolved active branch (or nothing); for repeaters, Rows holds the
// materialized virtual rows instead of Children.
type ResolvedBlock struct {
	Block        *Block             `json:"block"`
	Computed     string             `json:"computedValue,omitempty"`
	ActiveBranch string             `json:"activeBranch,omitempty"`
	Children     []*ResolvedBlock   `json:"children,omitempty"`
	Rows         [][]*ResolvedBlock `json:"rows,omitempty"`
}
