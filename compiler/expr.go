package compiler

import (
	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/lexer"
	"github.com/shdown/calx/value"
)

// targetKind classifies what parsePostfixChain left pending, for the
// statement-level assignment-target check.
type targetKind int

const (
	targetNone targetKind = iota // a value is already loaded on the stack
	targetIdent
	targetIndex // container+index are pushed, LOAD_AT withheld
)

type binOpInfo struct {
	prec       int
	rightAssoc bool
	isCmp2     bool
	isCmp3     bool
	a          uint8 // AOp, or CMP_2WAY polarity, or CMP_3WAY mask
}

const (
	precCmp = 1 + iota
	precBOr
	precBXor
	precBAnd
	precShift
	precAdd
	precMul
	precPow
)

var binOps = map[lexer.Kind]binOpInfo{
	lexer.EqEq:   {prec: precCmp, isCmp2: true, a: 1},
	lexer.NotEq:  {prec: precCmp, isCmp2: true, a: 0},
	lexer.Lt:     {prec: precCmp, isCmp3: true, a: bytecode.CmpLess},
	lexer.Le:     {prec: precCmp, isCmp3: true, a: bytecode.CmpLess | bytecode.CmpEqual},
	lexer.Gt:     {prec: precCmp, isCmp3: true, a: bytecode.CmpGreater},
	lexer.Ge:     {prec: precCmp, isCmp3: true, a: bytecode.CmpGreater | bytecode.CmpEqual},
	lexer.Pipe:   {prec: precBOr, a: uint8(bytecode.AOpBOr)},
	lexer.Caret:  {prec: precBXor, a: uint8(bytecode.AOpBXor)},
	lexer.Amp:    {prec: precBAnd, a: uint8(bytecode.AOpBAnd)},
	lexer.Shl:    {prec: precShift, a: uint8(bytecode.AOpBShl)},
	lexer.Shr:    {prec: precShift, a: uint8(bytecode.AOpBLshr)},
	lexer.Plus:   {prec: precAdd, a: uint8(bytecode.AOpAdd)},
	lexer.Minus:  {prec: precAdd, a: uint8(bytecode.AOpSub)},
	lexer.Tilde:  {prec: precAdd, a: uint8(bytecode.AOpConcat)},
	lexer.Star:   {prec: precMul, a: uint8(bytecode.AOpMul)},
	lexer.Slash:  {prec: precMul, a: uint8(bytecode.AOpDiv)},
	lexer.SlashSlash: {prec: precMul, a: uint8(bytecode.AOpIDiv)},
	lexer.Percent: {prec: precMul, a: uint8(bytecode.AOpIMod)},
	lexer.StarStar: {prec: precPow, rightAssoc: true, a: uint8(bytecode.AOpPow)},
}

var compoundAssignAOp = map[lexer.Kind]bytecode.AOp{
	lexer.PlusEq:      bytecode.AOpAdd,
	lexer.MinusEq:     bytecode.AOpSub,
	lexer.StarEq:      bytecode.AOpMul,
	lexer.SlashEq:     bytecode.AOpDiv,
	lexer.SlashSlashEq: bytecode.AOpIDiv,
	lexer.PercentEq:   bytecode.AOpIMod,
	lexer.StarStarEq:  bytecode.AOpPow,
	lexer.AmpEq:       bytecode.AOpBAnd,
	lexer.PipeEq:      bytecode.AOpBOr,
	lexer.CaretEq:     bytecode.AOpBXor,
	lexer.ShlEq:       bytecode.AOpBShl,
	lexer.ShrEq:       bytecode.AOpBLshr,
	lexer.TildeEq:     bytecode.AOpConcat,
}

// parseExpr parses a full expression, leaving exactly one value on the
// stack. minPrec is the Pratt precedence floor.
func (p *Parser) parseExpr(minPrec int) {
	p.parseUnary()
	p.binaryLoop(minPrec)
}

func (p *Parser) binaryLoop(minPrec int) {
	for {
		info, ok := binOps[p.cur.Kind]
		if !ok || info.prec < minPrec {
			return
		}
		p.advance()
		next := info.prec + 1
		if info.rightAssoc {
			next = info.prec
		}
		p.parseExpr(next)
		switch {
		case info.isCmp2:
			p.emit(bytecode.OpCmp2Way, info.a, 0)
		case info.isCmp3:
			p.emit(bytecode.OpCmp3Way, info.a, 0)
		default:
			p.emit(bytecode.OpAOP, info.a, 0)
		}
	}
}

func (p *Parser) parseUnary() {
	switch p.cur.Kind {
	case lexer.Minus:
		p.advance()
		p.parseUnary()
		p.emit(bytecode.OpNeg, 0, 0)
	case lexer.Not:
		p.advance()
		p.parseUnary()
		p.emit(bytecode.OpNot, 0, 0)
	case lexer.At:
		p.advance()
		p.parseUnary()
		p.emit(bytecode.OpLen, 0, 0)
	default:
		p.parsePostfixChain(false)
	}
}

// finalizePending turns a still-pending ident/index target into a loaded
// value on the stack, returning targetNone.
func (p *Parser) finalizePending(kind targetKind, name string) targetKind {
	switch kind {
	case targetIdent:
		p.emit(bytecode.OpLoadSymbolic, 0, p.identIdx(name))
	case targetIndex:
		p.emit(bytecode.OpLoadAt, 0, 0)
	}
	return targetNone
}

// parsePostfixChain parses an atom followed by any number of '.', '[', '('
// postfix operators. When deferFinal is true, the very last indexing step
// (a '.' or '[' not itself followed by another postfix operator) is left
// unfinished — container and index pushed, LOAD_AT withheld — so a
// statement-level caller can turn it into an assignment target instead. A
// bare identifier with no postfix at all is similarly left as targetIdent.
// When deferFinal is false every pending state is finalized before return.
func (p *Parser) parsePostfixChain(deferFinal bool) (targetKind, string) {
	kind, name := p.parseAtom()

	for {
		switch p.cur.Kind {
		case lexer.Dot:
			// Three consecutive dots is the scatter/gather ellipsis, not
			// member access; leave it for the caller (call-argument or
			// parameter parsing).
			if p.peekIsEllipsis() {
				goto doneLoop
			}
			p.advance()
			nameTok := p.expect(lexer.Ident, "field name")
			kind = p.finalizePending(kind, name)
			p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Str(value.NewString(nameTok.Text))))
			if p.continuesPostfix() {
				p.emit(bytecode.OpLoadAt, 0, 0)
				kind = targetNone
				continue
			}
			if deferFinal && p.isAssignStart() {
				return targetIndex, ""
			}
			p.emit(bytecode.OpLoadAt, 0, 0)
			kind = targetNone
		case lexer.LBracket:
			p.advance()
			kind = p.finalizePending(kind, name)
			p.parseExpr(0)
			p.expect(lexer.RBracket, "']'")
			if p.continuesPostfix() {
				p.emit(bytecode.OpLoadAt, 0, 0)
				kind = targetNone
				continue
			}
			if deferFinal && p.isAssignStart() {
				return targetIndex, ""
			}
			p.emit(bytecode.OpLoadAt, 0, 0)
			kind = targetNone
		case lexer.LParen:
			kind = p.finalizePending(kind, name)
			p.parseCallArgs()
			kind = targetNone
		default:
			goto doneLoop
		}
	}
doneLoop:
	if !deferFinal {
		kind = p.finalizePending(kind, name)
	}
	return kind, name
}

// continuesPostfix reports whether another '.', '[' or '(' immediately
// follows (meaning the indexing step just parsed is not the last one).
func (p *Parser) continuesPostfix() bool {
	switch p.cur.Kind {
	case lexer.Dot:
		return !p.peekIsEllipsis()
	case lexer.LBracket, lexer.LParen:
		return true
	}
	return false
}

func (p *Parser) isAssignStart() bool {
	switch p.cur.Kind {
	case lexer.Assign, lexer.Declare:
		return true
	}
	_, ok := compoundAssignAOp[p.cur.Kind]
	return ok
}

// peekIsEllipsis reports whether the current token is the first of three
// consecutive Dot tokens with no separating content, i.e. the "..." scatter
// marker (there is no dedicated lexer token for it).
func (p *Parser) peekIsEllipsis() bool {
	if p.cur.Kind != lexer.Dot {
		return false
	}
	return p.cur.Offset+1 < len(p.source) && p.source[p.cur.Offset+1] == '.' &&
		p.cur.Offset+2 < len(p.source) && p.source[p.cur.Offset+2] == '.'
}

func (p *Parser) consumeEllipsis() {
	p.expect(lexer.Dot, "'...'")
	p.expect(lexer.Dot, "'...'")
	p.expect(lexer.Dot, "'...'")
}

func (p *Parser) parseAtom() (targetKind, string) {
	switch p.cur.Kind {
	case lexer.Number:
		n, err := decimalParse(p.cur.Text)
		if err != nil {
			p.failAt("bad number literal %q: %s", p.cur.Text, err)
		}
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Num(n)))
		p.advance()
		return targetNone, ""
	case lexer.String:
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Str(value.NewString(p.cur.Text))))
		p.advance()
		return targetNone, ""
	case lexer.True:
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.True))
		p.advance()
		return targetNone, ""
	case lexer.False:
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.False))
		p.advance()
		return targetNone, ""
	case lexer.Nil:
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Nil))
		p.advance()
		return targetNone, ""
	case lexer.Ident:
		name := p.cur.Text
		p.advance()
		return targetIdent, name
	case lexer.LParen:
		p.advance()
		p.parseExpr(0)
		p.expect(lexer.RParen, "')'")
		return targetNone, ""
	case lexer.LBracket:
		return p.parseListLiteral()
	case lexer.LBrace:
		return p.parseDictLiteral()
	}
	p.failAt("unexpected token %q", p.cur.Text)
	return targetNone, ""
}

func (p *Parser) parseListLiteral() (targetKind, string) {
	p.advance()
	n := int32(0)
	for p.cur.Kind != lexer.RBracket {
		p.parseExpr(0)
		n++
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBracket, "']'")
	p.emit(bytecode.OpList, 0, n)
	return targetNone, ""
}

func (p *Parser) parseDictLiteral() (targetKind, string) {
	p.advance()
	n := int32(0)
	for p.cur.Kind != lexer.RBrace {
		p.parseExpr(0)
		p.expect(lexer.Colon, "':'")
		p.parseExpr(0)
		n++
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBrace, "'}'")
	p.emit(bytecode.OpDict, 0, n)
	return targetNone, ""
}

// parseCallArgs parses '(' already-peeked, args, ')' and emits CALL. The
// callee must already be loaded on the stack.
func (p *Parser) parseCallArgs() {
	p.expect(lexer.LParen, "'('")
	n := int32(0)
	scatter := false
	for p.cur.Kind != lexer.RParen {
		p.parseExpr(0)
		n++
		if p.peekIsEllipsis() {
			p.consumeEllipsis()
			scatter = true
			break
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	a := uint8(0)
	c := n
	if scatter {
		a = 1
		c = n - 1
	}
	p.emit(bytecode.OpCall, a, c)
}
