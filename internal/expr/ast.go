package expr

// Node is a parsed expression.
type Node interface {
	Pos() int
}

type (
	// Literal is a constant: number, string, boolean, null or undefined.
	Literal struct {
		At    int
		Value any
	}

	// Ident is a free variable resolved against the scope.
	Ident struct {
		At   int
		Name string
	}

	// This is the receiver of a bound data function.
	This struct {
		At int
	}

	ArrayLit struct {
		At    int
		Elems []Node
	}

	// ObjectLit keeps its keys in source order.
	ObjectLit struct {
		At     int
		Keys   []string
		Values []Node
	}

	// Member is x.name or x[expr].
	Member struct {
		At       int
		Object   Node
		Property Node
	}

	Call struct {
		At     int
		Callee Node
		Args   []Node
	}

	Unary struct {
		At int
		Op string
		X  Node
	}

	Binary struct {
		At   int
		Op   string
		L, R Node
	}

	// Logical is one of && || ?? and short-circuits.
	Logical struct {
		At   int
		Op   string
		L, R Node
	}

	Conditional struct {
		At               int
		Test, Then, Else Node
	}

	// Assign is target = value, target += value or target -= value.
	Assign struct {
		At     int
		Op     string
		Target Node
		Value  Node
	}

	// Sequence is a ;-separated body; its value is the last expression.
	Sequence struct {
		At   int
		List []Node
	}
)

func (n *Literal) Pos() int     { return n.At }
func (n *Ident) Pos() int       { return n.At }
func (n *This) Pos() int        { return n.At }
func (n *ArrayLit) Pos() int    { return n.At }
func (n *ObjectLit) Pos() int   { return n.At }
func (n *Member) Pos() int      { return n.At }
func (n *Call) Pos() int        { return n.At }
func (n *Unary) Pos() int       { return n.At }
func (n *Binary) Pos() int      { return n.At }
func (n *Logical) Pos() int     { return n.At }
func (n *Conditional) Pos() int { return n.At }
func (n *Assign) Pos() int      { return n.At }
func (n *Sequence) Pos() int    { return n.At }
