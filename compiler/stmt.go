package compiler

import (
	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/lexer"
	"github.com/shdown/calx/value"
)

// parseStatement parses and emits exactly one statement, consuming its
// trailing semicolon (synthetic or literal).
func (p *Parser) parseStatement() {
	for p.match(lexer.Semi) {
		if p.cur.Kind == lexer.EOF || p.cur.Kind == lexer.RBrace {
			return
		}
	}
	switch p.cur.Kind {
	case lexer.Fun:
		p.parseFunDecl()
	case lexer.If:
		p.parseIf()
	case lexer.While:
		p.parseWhile()
	case lexer.For:
		p.parseFor()
	case lexer.Break:
		p.parseBreak()
	case lexer.Continue:
		p.parseContinue()
	case lexer.Return:
		p.parseReturn()
	case lexer.Print:
		// "print" is sugar: every bare expression-statement already prints
		// its value, so the keyword just needs to be skipped.
		p.advance()
		p.parseExprStatement()
	default:
		p.parseExprStatement()
	}
}

// parseBlock parses a '{' ... '}' sequence of statements. No new funcScope is
// opened — block braces never nest lexical scope, only syntax.
func (p *Parser) parseBlock() {
	p.expect(lexer.LBrace, "'{'")
	for p.cur.Kind != lexer.RBrace && p.cur.Kind != lexer.EOF {
		p.parseStatement()
	}
	p.expect(lexer.RBrace, "'}'")
}

// optionalChainSemi consumes one semicolon if present; used between a
// compound statement's closing brace and a following elif/else, where ASI
// may or may not have inserted one depending on source layout.
func (p *Parser) optionalChainSemi() {
	p.match(lexer.Semi)
}

func (p *Parser) parseFunDecl() {
	p.advance()
	nameTok := p.expect(lexer.Ident, "function name")

	funcIdx := p.emit(bytecode.OpFunction, 0, 0)
	bodyStart := len(p.instrs)

	scope := newFuncScope(bodyStart)
	p.scopes = append(p.scopes, scope)

	p.expect(lexer.LParen, "'('")
	nargs := int32(0)
	variadic := false
	for p.cur.Kind != lexer.RParen {
		paramTok := p.expect(lexer.Ident, "parameter name")
		if _, dup := scope.slot(paramTok.Text); dup {
			p.failAt("duplicate parameter name %q", paramTok.Text)
		}
		scope.declare(paramTok.Text)
		nargs++
		if p.peekIsEllipsis() {
			p.consumeEllipsis()
			variadic = true
			break
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")

	p.parseBlock()
	p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Nil))
	p.emit(bytecode.OpReturn, 0, 0)

	maxStack := p.resolveScope(scope, len(p.instrs))
	p.scopes = p.scopes[:len(p.scopes)-1]

	argsEncoded := nargs
	if variadic {
		argsEncoded = ^(nargs - 1)
	}
	shapeIdx := int32(len(p.shapes))
	p.shapes = append(p.shapes, bytecode.Shape{
		NArgsEncoded: argsEncoded,
		NLocals:      len(scope.localNames),
		Offset:       len(p.instrs) - bodyStart,
		MaxStack:     maxStack,
	})
	p.patchC(funcIdx, shapeIdx)

	if len(p.scopes) == 1 {
		// A top-level function is a global, so its own body (and later
		// chunks run on the same instance) can call it by name.
		p.emit(bytecode.OpStoreSymbolic, 0, p.identIdx(nameTok.Text))
		return
	}
	outer := p.curScope()
	slot := outer.declare(nameTok.Text)
	p.emit(bytecode.OpStoreLocal, 0, int32(slot))
}

func (p *Parser) parseIf() {
	var ends []int
	for {
		p.advance() // 'if' or 'elif'
		p.expect(lexer.LParen, "'('")
		p.parseExpr(0)
		p.expect(lexer.RParen, "')'")
		jumpUnless := p.emit(bytecode.OpJumpUnless, 0, 0)
		p.parseBlock()
		jumpEnd := p.emit(bytecode.OpJump, 0, 0)
		p.patchC(jumpUnless, int32(len(p.instrs)))
		ends = append(ends, jumpEnd)

		p.optionalChainSemi()
		if p.cur.Kind == lexer.Elif {
			continue
		}
		if p.cur.Kind == lexer.Else {
			p.advance()
			p.parseBlock()
		}
		for _, idx := range ends {
			p.patchC(idx, int32(len(p.instrs)))
		}
		return
	}
}

func (p *Parser) parseWhile() {
	p.advance()
	condStart := len(p.instrs)
	p.expect(lexer.LParen, "'('")
	p.parseExpr(0)
	p.expect(lexer.RParen, "')'")
	jumpUnless := p.emit(bytecode.OpJumpUnless, 0, 0)

	loop := &loopCtx{}
	p.loops = append(p.loops, loop)
	p.parseBlock()
	p.loops = p.loops[:len(p.loops)-1]

	p.emit(bytecode.OpJump, 0, int32(condStart))
	end := len(p.instrs)
	p.patchC(jumpUnless, int32(end))
	for _, idx := range loop.breakJumps {
		p.patchC(idx, int32(end))
	}
	for _, idx := range loop.continueJumps {
		p.patchC(idx, int32(condStart))
	}
}

// parseFor compiles for(init; cond; post){body}. The pieces are emitted in
// the natural parse order (init, cond, JUMP_UNLESS, post, body) and then the
// [postStart,bodyEnd) instruction range is rotated into execution order
// (init, cond, body, post, goto-cond) by three reversals. Every jump whose
// already-resolved absolute target falls inside that span (nested if/while/
// for jumps, resolved before this function ever sees them) is retargeted
// via remap before the rotation moves it; this loop's own break/continue
// jumps are left as placeholders and patched with post-rotation targets
// once the end/post addresses are known.
func (p *Parser) parseFor() {
	p.advance()
	p.expect(lexer.LParen, "'('")

	if !p.check(lexer.Semi) {
		p.parseSimpleStatement()
	}
	p.expect(lexer.Semi, "';'")

	condStart := len(p.instrs)
	hasCond := !p.check(lexer.Semi)
	if hasCond {
		p.parseExpr(0)
	}
	p.expect(lexer.Semi, "';'")
	var jumpUnless int
	if hasCond {
		jumpUnless = p.emit(bytecode.OpJumpUnless, 0, 0)
	}

	postStart := len(p.instrs)
	if !p.check(lexer.RParen) {
		p.parseSimpleStatement()
	}
	p.expect(lexer.RParen, "')'")

	bodyStart := len(p.instrs)
	loop := &loopCtx{}
	p.loops = append(p.loops, loop)
	p.parseBlock()
	p.loops = p.loops[:len(p.loops)-1]
	bodyEnd := len(p.instrs)

	newPostStart := postStart + (bodyEnd - bodyStart)
	remap := func(i int) int {
		switch {
		case i < postStart:
			return i
		case i < bodyStart:
			return i + (bodyEnd - bodyStart)
		default:
			return i - (bodyStart - postStart)
		}
	}

	// Every JUMP/JUMP_UNLESS emitted while parsing post/body carries an
	// absolute target, most already patched (nested if/while, nested for's
	// own resolved jumps) during the recursive-descent calls above, before
	// this rotation was known about. Rotation physically moves every
	// instruction in [postStart,bodyEnd) to a new index, so any such target
	// landing inside that span, or at its end (a nested if/while closing the
	// body, which must fall into post), goes stale unless remapped here, before the
	// rotation carries the (already-correct) operand along to its new slot.
	// This loop's own break/continue jumps are the exception: their operand
	// is still the zero placeholder at this point and gets assigned the
	// correct post-rotation target directly below, so they are skipped.
	skip := make(map[int]bool, len(loop.breakJumps)+len(loop.continueJumps))
	for _, idx := range loop.breakJumps {
		skip[idx] = true
	}
	for _, idx := range loop.continueJumps {
		skip[idx] = true
	}
	for idx := postStart; idx < bodyEnd; idx++ {
		if skip[idx] {
			continue
		}
		instr := p.instrs[idx].instr
		op := instr.Op()
		if op != bytecode.OpJump && op != bytecode.OpJumpUnless {
			continue
		}
		target := int(instr.C())
		if target >= postStart && target <= bodyEnd {
			p.instrs[idx].instr = bytecode.MakeInstr(op, instr.A(), int32(remap(target)))
		}
	}

	rotateLeft(p.instrs[postStart:bodyEnd], bodyStart-postStart)

	p.emit(bytecode.OpJump, 0, int32(condStart))
	end := len(p.instrs)

	if hasCond {
		p.patchC(jumpUnless, int32(end))
	}
	for _, idx := range loop.breakJumps {
		p.patchC(remap(idx), int32(end))
	}
	for _, idx := range loop.continueJumps {
		p.patchC(remap(idx), int32(newPostStart))
	}
}

// rotateLeft rotates s left by n positions using the standard
// reverse-reverse-reverse trick (reverse [0,n), reverse [n,len), reverse
// whole), reassigning instruction words only — line tags travel with them.
func rotateLeft(s []taggedInstr, n int) {
	if n <= 0 || n >= len(s) {
		return
	}
	reverseInstrs(s[:n])
	reverseInstrs(s[n:])
	reverseInstrs(s)
}

func reverseInstrs(s []taggedInstr) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func (p *Parser) parseBreak() {
	p.advance()
	if len(p.loops) == 0 {
		p.failAt("break outside a loop")
	}
	loop := p.loops[len(p.loops)-1]
	idx := p.emit(bytecode.OpJump, 0, 0)
	loop.breakJumps = append(loop.breakJumps, idx)
}

func (p *Parser) parseContinue() {
	p.advance()
	if len(p.loops) == 0 {
		p.failAt("continue outside a loop")
	}
	loop := p.loops[len(p.loops)-1]
	idx := p.emit(bytecode.OpJump, 0, 0)
	loop.continueJumps = append(loop.continueJumps, idx)
}

func (p *Parser) parseReturn() {
	p.advance()
	if p.check(lexer.Semi) {
		p.emit(bytecode.OpLoadConst, 0, p.addConst(value.Nil))
	} else {
		p.parseExpr(0)
	}
	p.emit(bytecode.OpReturn, 0, 0)
}

// parseSimpleStatement parses an assignment or bare expression without
// consuming a trailing semicolon — used for the for-loop init/post clauses,
// which are delimited by ';' and ')' respectively, not by a statement
// terminator.
func (p *Parser) parseSimpleStatement() {
	p.parseAssignOrExpr(false)
}

// parseExprStatement parses a full statement-level expression: an
// assignment form, or (falling through) a bare expression whose value is
// printed.
func (p *Parser) parseExprStatement() {
	p.parseAssignOrExpr(true)
	p.expect(lexer.Semi, "';'")
}

func (p *Parser) parseAssignOrExpr(isStatementLevel bool) {
	var kind targetKind
	var name string
	switch p.cur.Kind {
	case lexer.Minus, lexer.Not, lexer.At:
		p.parseUnary()
		p.binaryLoop(0)
		kind = targetNone
	default:
		kind, name = p.parsePostfixChain(true)
	}

	switch {
	case p.check(lexer.Declare):
		if kind != targetIdent {
			p.failAt("invalid assignment target for ':='")
		}
		p.advance()
		p.parseExpr(0)
		if len(p.scopes) == 1 {
			// Top-level ':=' defines a global.
			p.emit(bytecode.OpStoreSymbolic, 0, p.identIdx(name))
			return
		}
		slot := p.curScope().declare(name)
		p.emit(bytecode.OpStoreLocal, 0, int32(slot))
		return
	case p.check(lexer.Assign):
		if kind == targetNone {
			p.failAt("invalid assignment target for '='")
		}
		p.advance()
		p.parseExpr(0)
		p.emitStore(kind, name)
		return
	default:
		if aop, ok := compoundAssignAOp[p.cur.Kind]; ok {
			if kind == targetNone {
				p.failAt("invalid assignment target for %q", p.cur.Text)
			}
			p.advance()
			p.parseExpr(0)
			p.emitModify(kind, name, aop)
			return
		}
	}

	// Not an assignment: finalize any pending target into a loaded value
	// and consume whatever binary-operator tail follows.
	kind = p.finalizePending(kind, name)
	p.binaryLoop(0)

	if isStatementLevel {
		p.emit(bytecode.OpPrint, 0, 0)
	} else {
		p.emit(bytecode.OpPop, 0, 0)
	}
}

func (p *Parser) emitStore(kind targetKind, name string) {
	switch kind {
	case targetIdent:
		p.emit(bytecode.OpStoreSymbolic, 0, p.identIdx(name))
	case targetIndex:
		p.emit(bytecode.OpStoreAt, 0, 0)
	default:
		p.failAt("invalid assignment target")
	}
}

func (p *Parser) emitModify(kind targetKind, name string, aop bytecode.AOp) {
	switch kind {
	case targetIdent:
		p.emit(bytecode.OpModifySymbolic, uint8(aop), p.identIdx(name))
	case targetIndex:
		p.emit(bytecode.OpModifyAt, uint8(aop), 0)
	default:
		p.failAt("invalid assignment target")
	}
}
