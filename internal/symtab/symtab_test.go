package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/types"
)

func TestSymbol_String(t *testing.T) {
	s := &Symbol{
		Name: "x",
		Kind: SymbolVariable,
		Type: types.I32,
		Pos:  lexer.Position{Filename: "test.esc", Line: 1, Column: 5},
	}
	require.Equal(t, "variable x: i32 at test.esc:1:5", s.String())
}

func TestSymbol_CanAssign(t *testing.T) {
	require.True(t, (&Symbol{Kind: SymbolVariable}).CanAssign())
	require.True(t, (&Symbol{Kind: SymbolParameter}).CanAssign())
	require.False(t, (&Symbol{Kind: SymbolVariable, Constant: true}).CanAssign())
	require.False(t, (&Symbol{Kind: SymbolFunction}).CanAssign())
	require.False(t, (&Symbol{Kind: SymbolConstant}).CanAssign())
}

func TestTable_PushAndLookup(t *testing.T) {
	tab := New()
	tab.Push(&Symbol{Name: "x", Type: types.I32})

	found := tab.Lookup("x")
	require.NotNil(t, found)
	require.True(t, found.Used)

	require.Nil(t, tab.Lookup("y"))
}

func TestTable_ShadowingByRecencyNotNesting(t *testing.T) {
	tab := New()
	tab.Push(&Symbol{Name: "x", Type: types.I32})
	mark := tab.Mark()
	tab.Push(&Symbol{Name: "x", Type: types.F64})

	found := tab.Lookup("x")
	require.Equal(t, types.F64, found.Type)

	tab.Restore(mark)
	found = tab.Lookup("x")
	require.Equal(t, types.I32, found.Type)
}

func TestTable_RestoreDropsInnerBindings(t *testing.T) {
	tab := New()
	tab.Push(&Symbol{Name: "outer", Type: types.I32})
	mark := tab.Mark()
	tab.Push(&Symbol{Name: "inner", Type: types.I32})
	require.NotNil(t, tab.Lookup("inner"))

	tab.Restore(mark)
	require.Nil(t, tab.Lookup("inner"))
	require.NotNil(t, tab.Lookup("outer"))
}

func TestTable_LookupLocal(t *testing.T) {
	tab := New()
	tab.Push(&Symbol{Name: "x", Type: types.I32})
	mark := tab.Mark()
	tab.Push(&Symbol{Name: "y", Type: types.I32})

	require.NotNil(t, tab.LookupLocal("y", mark))
	require.Nil(t, tab.LookupLocal("x", mark))
}

func TestTable_UnusedSince(t *testing.T) {
	tab := New()
	mark := tab.Mark()
	tab.Push(&Symbol{Name: "used", Type: types.I32})
	tab.Push(&Symbol{Name: "unused", Type: types.I32})
	tab.Lookup("used")

	unused := tab.UnusedSince(mark)
	require.Len(t, unused, 1)
	require.Equal(t, "unused", unused[0].Name)
}

func TestSymbolKind_String(t *testing.T) {
	cases := map[SymbolKind]string{
		SymbolVariable:  "variable",
		SymbolParameter: "parameter",
		SymbolFunction:  "function",
		SymbolExtern:    "extern",
		SymbolConstant:  "constant",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}
