package compiler

import (
	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/decimal"
	"github.com/shdown/calx/lexer"
	"github.com/shdown/calx/value"
)

// Globals interns a global name to a stable slot index, on first reference
// (not on definition — see the design notes on global interning). The VM's
// globals table implements this.
type Globals interface {
	Intern(name string) int
}

const (
	maxLocals = 1 << 16
	maxConsts = 1 << 20
	maxIdents = 1 << 20
)

// funcScope is one function's lexical scope: its local-name table (shared
// by every `{...}` block inside the function — blocks do not nest scopes)
// and the instruction range its body occupies, used by the resolve pass
// when the scope closes.
type funcScope struct {
	localNames []string
	localIndex map[string]int
	instrStart int // index of the first body instruction (after FUNCTION, or 0 for the entry function)
}

func newFuncScope(instrStart int) *funcScope {
	return &funcScope{localIndex: make(map[string]int), instrStart: instrStart}
}

func (s *funcScope) slot(name string) (int, bool) {
	i, ok := s.localIndex[name]
	return i, ok
}

func (s *funcScope) declare(name string) int {
	if i, ok := s.localIndex[name]; ok {
		return i
	}
	i := len(s.localNames)
	if i >= maxLocals {
		panic(&ParseError{Message: "too many locals"})
	}
	s.localNames = append(s.localNames, name)
	s.localIndex[name] = i
	return i
}

type taggedInstr struct {
	instr bytecode.Instr
	line  int
}

type loopCtx struct {
	breakJumps    []int
	continueJumps []int
}

// Parser holds all state for one single-pass compile of one source unit.
type Parser struct {
	lex     *lexer.Lexer
	cur     lexer.Token
	prev    lexer.Token
	origin  string
	source  string
	globals Globals

	consts []value.Value
	shapes []bytecode.Shape
	instrs []taggedInstr

	identNames []string
	identIndex map[string]int

	scopes []*funcScope
	loops  []*loopCtx
}

// Compile parses and compiles src into a Chunk. globals resolves (interns)
// identifiers that are not local to any enclosing function scope.
func Compile(origin, src string, globals Globals) (chunk *bytecode.Chunk, err error) {
	p := &Parser{
		lex:        lexer.New(origin, src),
		origin:     origin,
		source:     src,
		globals:    globals,
		identIndex: make(map[string]int),
	}
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p.advance()
	entry := newFuncScope(0)
	p.scopes = append(p.scopes, entry)
	for p.cur.Kind != lexer.EOF {
		p.parseStatement()
	}
	p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Nil))
	p.emit(bytecode.OpReturn, 0, 0)
	maxStack := p.resolveScope(entry, len(p.instrs))
	p.shapes = append([]bytecode.Shape{{NArgsEncoded: 0, NLocals: len(entry.localNames), Offset: len(p.instrs), MaxStack: maxStack}}, p.shapes...)
	// Entry shape was appended last conceptually but must live at a stable
	// index; shift every FUNCTION instruction's shape index by one to
	// account for prepending it as shape 0.
	for i, ti := range p.instrs {
		if ti.instr.Op() == bytecode.OpFunction {
			p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpFunction, ti.instr.A(), ti.instr.C()+1)
		}
	}

	instrs := make([]bytecode.Instr, len(p.instrs))
	quarks := make([]bytecode.Quark, 0, 64)
	lastLine := -1
	for i, ti := range p.instrs {
		instrs[i] = ti.instr
		if ti.line != lastLine {
			quarks = append(quarks, bytecode.Quark{InstrIndex: i, Line: ti.line})
			lastLine = ti.line
		}
	}
	return &bytecode.Chunk{
		Instrs: instrs,
		Consts: p.consts,
		Shapes: p.shapes,
		Quarks: quarks,
		Origin: origin,
		Source: src,
	}, nil
}

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		t := p.lex.Next()
		if t.Kind == lexer.Error {
			p.fail(t.Line, t.Col, t.Offset, t.Size, t.EOFErr, "%s", t.Msg)
		}
		p.cur = t
		return
	}
}

func (p *Parser) check(k lexer.Kind) bool { return p.cur.Kind == k }

func (p *Parser) match(k lexer.Kind) bool {
	if p.cur.Kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if p.cur.Kind != k {
		p.fail(p.cur.Line, p.cur.Col, p.cur.Offset, p.cur.Size, p.cur.Kind == lexer.EOF, "expected %s, got %q", what, p.cur.Text)
	}
	t := p.cur
	p.advance()
	return t
}

func (p *Parser) curLine() int { return p.cur.Line }

func (p *Parser) emit(op bytecode.Op, a uint8, c int32) int {
	idx := len(p.instrs)
	p.instrs = append(p.instrs, taggedInstr{instr: bytecode.MakeInstr(op, a, c), line: p.prev.Line})
	return idx
}

func (p *Parser) patchC(idx int, c int32) {
	old := p.instrs[idx].instr
	p.instrs[idx].instr = bytecode.MakeInstr(old.Op(), old.A(), c)
}

func (p *Parser) addConst(v value.Value) int32 {
	if len(p.consts) >= maxConsts {
		p.failAt("too many constants")
	}
	p.consts = append(p.consts, v)
	return int32(len(p.consts) - 1)
}

func (p *Parser) identIdx(name string) int32 {
	if i, ok := p.identIndex[name]; ok {
		return int32(i)
	}
	if len(p.identNames) >= maxIdents {
		p.failAt("too many identifiers")
	}
	i := len(p.identNames)
	p.identNames = append(p.identNames, name)
	p.identIndex[name] = i
	return int32(i)
}

func (p *Parser) curScope() *funcScope { return p.scopes[len(p.scopes)-1] }

// resolveScope rewrites every symbolic opcode in [scope.instrStart, end) to
// its resolved LOCAL or GLOBAL form, and computes the scope's maxstack by a
// linear walk that skips over nested function bodies (already resolved and
// stack-analyzed independently when their own scope closed).
func (p *Parser) resolveScope(scope *funcScope, end int) int {
	for i := scope.instrStart; i < end; i++ {
		instr := p.instrs[i].instr
		switch instr.Op() {
		case bytecode.OpLoadSymbolic:
			name := p.identNames[instr.C()]
			if slot, ok := scope.slot(name); ok {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpLoadLocal, 0, int32(slot))
			} else {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpLoadGlobal, 0, int32(p.globals.Intern(name)))
			}
		case bytecode.OpStoreSymbolic:
			name := p.identNames[instr.C()]
			if slot, ok := scope.slot(name); ok {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpStoreLocal, 0, int32(slot))
			} else {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpStoreGlobal, 0, int32(p.globals.Intern(name)))
			}
		case bytecode.OpModifySymbolic:
			name := p.identNames[instr.C()]
			if slot, ok := scope.slot(name); ok {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpModifyLocal, instr.A(), int32(slot))
			} else {
				p.instrs[i].instr = bytecode.MakeInstr(bytecode.OpModifyGlobal, instr.A(), int32(p.globals.Intern(name)))
			}
		}
	}

	depth, maxDepth := 0, 0
	track := func(d int) {
		depth += d
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	for i := scope.instrStart; i < end; i++ {
		instr := p.instrs[i].instr
		if instr.Op() == bytecode.OpFunction {
			track(1)
			i += p.shapeOffset(instr.C())
			continue
		}
		track(stackDelta(instr))
	}
	return maxDepth
}

func (p *Parser) shapeOffset(shapeIdx int32) int {
	return p.shapes[shapeIdx].Offset
}

// stackDelta returns the net value-stack effect of instr, per the
// opcode-delta table in the design notes. FUNCTION is handled by the
// caller (it must also skip the body it pushes past).
func stackDelta(instr bytecode.Instr) int {
	switch instr.Op() {
	case bytecode.OpLoadConst, bytecode.OpLoadLocal, bytecode.OpLoadGlobal:
		return 1
	case bytecode.OpLoadAt:
		return -1
	case bytecode.OpStoreLocal, bytecode.OpStoreGlobal:
		return -1
	case bytecode.OpStoreAt:
		return -3
	case bytecode.OpModifyLocal, bytecode.OpModifyGlobal:
		return -1
	case bytecode.OpModifyAt:
		return -3
	case bytecode.OpPrint, bytecode.OpPop:
		return -1
	case bytecode.OpReturn:
		return -1
	case bytecode.OpJump:
		return 0
	case bytecode.OpJumpUnless:
		return -1
	case bytecode.OpCall:
		n := int(instr.C())
		if instr.A() != 0 {
			n++
		}
		return -(n + 1) + 1
	case bytecode.OpAOP, bytecode.OpCmp2Way, bytecode.OpCmp3Way:
		return -1
	case bytecode.OpNeg, bytecode.OpNot, bytecode.OpLen:
		return 0
	case bytecode.OpList:
		return -int(instr.C()) + 1
	case bytecode.OpDict:
		return -2*int(instr.C()) + 1
	}
	return 0
}

// decimalParse is a thin indirection so stmt.go/expr.go need not import
// decimal directly just for the literal-constant path.
func decimalParse(s string) (*decimal.Number, error) { return decimal.Parse(s) }
