package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type ctx struct{}

func regular(name string, test func(Attribute) bool) Definition[ctx] {
	return Definition[ctx]{
		Name: name,
		Test: test,
		Process: func(ctx, *html.Node, Attribute) (Result, error) {
			return Continue, nil
		},
	}
}

func TestRegistry_LastRegisteredWins(t *testing.T) {
	r := NewRegistry[ctx]()

	require.NoError(t, r.Register(regular("generic", Prefixed("$attr:"))))
	require.NoError(t, r.Register(regular("class", Named("$attr:class"))))

	def, ok := r.MatchRegular(Attribute{Name: "$attr:class"})
	require.True(t, ok)
	assert.Equal(t, "class", def.Name)

	def, ok = r.MatchRegular(Attribute{Name: "$attr:title"})
	require.True(t, ok)
	assert.Equal(t, "generic", def.Name)

	_, ok = r.MatchRegular(Attribute{Name: "title"})
	assert.False(t, ok)
}

func TestRegistry_Kinds(t *testing.T) {
	r := NewRegistry[ctx]()

	gen := Definition[ctx]{
		Name: "for",
		Test: Named("$for"),
		Generate: func(ctx, Attribute) (Generated, error) {
			return Generated{}, nil
		},
		Options: Options{GeneratesNodes: true},
	}
	data := regular("data", Named("$data"))
	data.Options.AppEntry = true

	require.NoError(t, r.Register(gen))
	require.NoError(t, r.Register(data))

	_, ok := r.MatchGenerating(Attribute{Name: "$for"})
	assert.True(t, ok)
	_, ok = r.MatchRegular(Attribute{Name: "$for"})
	assert.False(t, ok)

	_, ok = r.MatchAppEntry(Attribute{Name: "$data"})
	assert.True(t, ok)
	_, ok = r.MatchRegular(Attribute{Name: "$data"})
	assert.True(t, ok, "app-entry directives stay in their own kind list")

	g, reg, app := r.Names()
	assert.Equal(t, []string{"for"}, g)
	assert.Equal(t, []string{"data"}, reg)
	assert.Equal(t, []string{"data"}, app)
}

func TestRegistry_RejectsIncompleteDefinitions(t *testing.T) {
	r := NewRegistry[ctx]()

	tests := []struct {
		name string
		def  Definition[ctx]
	}{
		{"missing test", Definition[ctx]{Name: "x"}},
		{"missing processor", Definition[ctx]{Name: "x", Test: Named("x")}},
		{"missing generator", Definition[ctx]{Name: "x", Test: Named("x"), Options: Options{GeneratesNodes: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.def)
			var de *DefinitionError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "x", de.Name)
		})
	}
}

func TestAttribute_Arg(t *testing.T) {
	assert.Equal(t, "class", Attribute{Name: "$attr:class"}.Arg())
	assert.Equal(t, "click", Attribute{Name: "$event:click"}.Arg())
	assert.Equal(t, "", Attribute{Name: "$if"}.Arg())
}

func TestAttributes_DocumentOrder(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{
		{Key: "$if", Val: "a"},
		{Key: "class", Val: "b"},
		{Key: "$attr:title", Val: "c"},
	}}

	assert.Equal(t, []Attribute{
		{Name: "$if", Value: "a"},
		{Name: "class", Value: "b"},
		{Name: "$attr:title", Value: "c"},
	}, Attributes(n))
}
