package translator

import "github.com/hanpama/mongograph/internal/resolver"

// Shape is a resolved field: either a *Leaf or a *Branch.
type Shape interface {
	shape()
	FieldName() string
}

// Leaf is a field without child selections.
type Leaf struct {
	Name string
	Node *ResolvedNode
}

// Branch is a field with child selections.
type Branch struct {
	Name     string
	Node     *ResolvedNode
	Children []Shape
}

func (*Leaf) shape()   {}
func (*Branch) shape() {}

func (l *Leaf) FieldName() string   { return l.Name }
func (b *Branch) FieldName() string { return b.Name }

func buildShape(n *resolver.Node) Shape {
	rn, _ := n.Value.(*ResolvedNode)
	if n.Leaf {
		return &Leaf{Name: n.Name, Node: rn}
	}
	b := &Branch{Name: n.Name, Node: rn, Children: make([]Shape, 0, len(n.Children))}
	for _, c := range n.Children {
		b.Children = append(b.Children, buildShape(c))
	}
	return b
}
