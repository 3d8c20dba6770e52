package sexpr

import (
	"fmt"

	"github.com/hassan/esc/internal/lexer"
)

// datum is one node of the generic parenthesized tree tokens are read into,
// before parser.go's transducer interprets it against the grammar in
// spec.md §4.4. A datum is either an atom (symbol/int/float/string) or a
// list of child data.
type datum struct {
	pos  lexer.Position
	list []*datum // non-nil (possibly empty) for a list; nil for an atom

	sym      string
	isInt    bool
	intVal   int64
	isFloat  bool
	floatVal float64
	isString bool
	strVal   []byte
}

func (d *datum) isList() bool { return d.list != nil }

func (d *datum) isSymbol(name string) bool {
	return !d.isList() && !d.isInt && !d.isFloat && !d.isString && d.sym == name
}

// head returns the leading symbol of a list datum, or "" if d isn't a
// symbol-headed list.
func (d *datum) head() string {
	if !d.isList() || len(d.list) == 0 {
		return ""
	}
	h := d.list[0]
	if h.isList() || h.isInt || h.isFloat || h.isString {
		return ""
	}
	return h.sym
}

// args returns d's list elements after the head.
func (d *datum) args() []*datum {
	if !d.isList() || len(d.list) == 0 {
		return nil
	}
	return d.list[1:]
}

type reader struct {
	toks []token
	pos  int
}

func newReader(toks []token) *reader { return &reader{toks: toks} }

func (r *reader) peek() token  { return r.toks[r.pos] }
func (r *reader) atEOF() bool  { return r.peek().kind == tokEOF }
func (r *reader) next() token  { t := r.toks[r.pos]; r.pos++; return t }

// readAll reads every top-level datum in the token stream.
func (r *reader) readAll() ([]*datum, error) {
	var out []*datum
	for !r.atEOF() {
		d, err := r.readDatum()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *reader) readDatum() (*datum, error) {
	t := r.peek()
	switch t.kind {
	case tokLParen:
		r.next()
		d := &datum{pos: t.pos, list: []*datum{}}
		for {
			if r.atEOF() {
				return nil, fmt.Errorf("%s: unterminated list", t.pos.String())
			}
			if r.peek().kind == tokRParen {
				r.next()
				return d, nil
			}
			child, err := r.readDatum()
			if err != nil {
				return nil, err
			}
			d.list = append(d.list, child)
		}
	case tokRParen:
		return nil, fmt.Errorf("%s: unexpected ')'", t.pos.String())
	case tokSymbol:
		r.next()
		return &datum{pos: t.pos, sym: t.text}, nil
	case tokInt:
		r.next()
		return &datum{pos: t.pos, isInt: true, intVal: t.ival}, nil
	case tokFloat:
		r.next()
		return &datum{pos: t.pos, isFloat: true, floatVal: t.fval}, nil
	case tokString:
		r.next()
		return &datum{pos: t.pos, isString: true, strVal: t.sval}, nil
	default:
		return nil, fmt.Errorf("%s: unexpected end of input", t.pos.String())
	}
}
