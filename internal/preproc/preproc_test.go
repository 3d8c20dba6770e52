package preproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpand_ConstantMacro(t *testing.T) {
	src := "⚡ MAX 👉 100\nfn main() i32 { ret MAX }\n"
	got := Expand(src)
	require.Contains(t, got, "ret 100")
	require.NotContains(t, got, "⚡")
}

func TestExpand_ParameterizedMacro(t *testing.T) {
	src := "⚡ SQ(x) 👉 ((x)*(x))\nfn main() i32 { ret SQ(5) }\n"
	got := Expand(src)
	require.Contains(t, got, "((5)*(5))")
}

func TestExpand_NestedMacroExpansion(t *testing.T) {
	src := "⚡ A 👉 1\n⚡ B 👉 A+1\nfn main() i32 { ret B }\n"
	got := Expand(src)
	require.Contains(t, got, "ret 1+1")
}

func TestExpand_NoMacrosLeavesSourceUntouched(t *testing.T) {
	src := "fn main() i32 { ret 0 }\n"
	got := Expand(src)
	require.Equal(t, src, got)
}

func TestExpand_SkipsStringsAndComments(t *testing.T) {
	src := "⚡ MAX 👉 100\nfn main() i32 { puts(\"MAX\"); ret MAX } // MAX is not a call here\n"
	got := Expand(src)
	require.Contains(t, got, "ret 100")
	require.Contains(t, got, "puts(\"MAX\")")
	require.Contains(t, got, "// MAX is not a call here")
}

func TestExpand_UnmarkedLightningLeftForComptime(t *testing.T) {
	src := "x := ⚡ (1+2)\n"
	got := Expand(src)
	require.Contains(t, got, "⚡")
}

func TestExpand_ArgumentsRespectNestedParens(t *testing.T) {
	src := "⚡ ADD(a,b) 👉 (a+b)\nfn main() i32 { ret ADD((1+2),3) }\n"
	got := Expand(src)
	require.Contains(t, got, "((1+2)+3)")
}
