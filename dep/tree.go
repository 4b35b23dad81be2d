package dep

// TreeNode is one occurrence of a task in an expanded dependency tree.
// EdgeType is the type of the edge linking it from its parent, empty at the
// root. A Circular node repeats an ancestor on the current path and is not
// expanded further.
type TreeNode struct {
	ID       string      `json:"id"`
	EdgeType Type        `json:"edge_type,omitempty"`
	Circular bool        `json:"circular,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree is a depth-bounded view of a task's dependency subgraph. Edges maps
// each visited task ID to its direct outgoing edges.
type Tree struct {
	Root  *TreeNode
	Edges map[string][]Edge
}

// Expand walks the subgraph under rootID down to maxDepth edge levels.
// Ancestors on the current traversal path are never re-entered, so expansion
// terminates on any graph and visits each edge at most once per path.
func (s *Store) Expand(rootID string, maxDepth int) (*Tree, error) {
	tree := &Tree{Edges: make(map[string][]Edge)}
	path := make(map[string]bool)
	root, err := s.expand(rootID, "", maxDepth, path, tree)
	if err != nil {
		return nil, err
	}
	tree.Root = root
	return tree, nil
}

func (s *Store) expand(id string, edgeType Type, depth int, path map[string]bool, tree *Tree) (*TreeNode, error) {
	node := &TreeNode{ID: id, EdgeType: edgeType}
	if depth <= 0 {
		return node, nil
	}

	edges, ok := tree.Edges[id]
	if !ok {
		var err error
		edges, err = s.ListAll(id)
		if err != nil {
			return nil, err
		}
		tree.Edges[id] = edges
	}

	path[id] = true
	defer delete(path, id)

	for _, e := range edges {
		if path[e.DependsOnID] {
			node.Children = append(node.Children, &TreeNode{
				ID:       e.DependsOnID,
				EdgeType: e.Type,
				Circular: true,
			})
			continue
		}
		child, err := s.expand(e.DependsOnID, e.Type, depth-1, path, tree)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
