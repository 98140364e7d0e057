package vm

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/Patches72790/grox/debug"
	e "github.com/Patches72790/grox/errors"
	"github.com/Patches72790/grox/utils"
)

// Parser is a one-shot single-pass compiler: a Pratt parser whose handlers
// emit straight into the chunk being compiled.
type Parser struct {
	tokens     []Token
	pos        int
	prev, curr Token

	compilingChunk *Chunk
	locals         *Locals
	depth          int

	errors   *multierror.Error
	hadError bool
	// Whether the parser is trying to sync, i.e. in the error recovery process.
	panicMode bool
}

func NewParser() *Parser { return &Parser{locals: NewLocals()} }

// Compile scans src and compiles the token sequence into a fresh chunk.
// A non-nil error carries every diagnostic of the run; the chunk must not
// be executed in that case.
func (p *Parser) Compile(src string) (*Chunk, error) {
	res := NewChunk()
	p.compilingChunk = res
	defer func() { p.compilingChunk = nil }()

	p.tokens = NewScanner(src).Scan()
	p.pos = 0

	p.advance()
	for !p.match(TEOF) {
		p.decl()
	}

	p.endCompiler()
	return res, p.errors.ErrorOrNil()
}

func (p *Parser) currChunk() *Chunk { return p.compilingChunk }

/* Single-pass compilation */

func (p *Parser) emit(insts ...Inst) {
	for _, inst := range insts {
		p.currChunk().Write(inst, p.prev.Line)
	}
}

func (p *Parser) emitConst(val Value) {
	p.checkConst(p.currChunk().AddConst(val, p.prev.Line))
}

func (p *Parser) checkConst(idx int) {
	if idx >= MaxConsts {
		p.Error("Too many constants in one chunk.")
	}
}

func (p *Parser) num(_canAssign bool) { p.emitConst(VNum(p.prev.Num)) }

func (p *Parser) grouping(_canAssign bool) {
	p.expr()
	p.consume(TRParen, "Expect ')' after expression.")
}

func (p *Parser) lit(_canAssign bool) {
	switch p.prev.Type {
	case TFalse:
		p.emit(Inst{Op: OpFalse})
	case TNil:
		p.emit(Inst{Op: OpNil})
	case TTrue:
		p.emit(Inst{Op: OpTrue})
	default:
		panic(e.Unreachable)
	}
}

// str wraps the literal's text (already unquoted by the scanner) in a heap
// string object.
func (p *Parser) str(_canAssign bool) { p.emitConst(NewVStr(p.prev.Lexeme)) }

func (p *Parser) var_(canAssign bool) { p.namedVar(p.prev, canAssign) }

// namedVar compiles a variable mention: a stack slot when the name resolves
// to a local, a named global otherwise.
func (p *Parser) namedVar(name Token, canAssign bool) {
	slot, initialized, isLocal := p.locals.Resolve(name.Lexeme)
	if isLocal && !initialized {
		p.Error("Can't read local variable in its own initializer.")
	}

	if isLocal {
		if canAssign && p.match(TEqual) {
			p.expr()
			p.emit(Inst{OpSetLocal, slot})
		} else {
			p.emit(Inst{OpGetLocal, slot})
		}
		return
	}

	if canAssign && p.match(TEqual) {
		p.expr()
		p.checkConst(p.currChunk().AddIdentConst(name.Lexeme, p.prev.Line, OpSetGlobal))
	} else {
		p.checkConst(p.currChunk().AddIdentConst(name.Lexeme, p.prev.Line, OpGetGlobal))
	}
}

func (p *Parser) unary(_canAssign bool) {
	op := p.prev.Type

	// Compile the operand.
	p.parsePrec(PrecUnary)

	// Emit the operator instruction.
	switch op {
	case TBang:
		p.emit(Inst{Op: OpNot})
	case TMinus:
		p.emit(Inst{Op: OpNeg})
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) binary(_canAssign bool) {
	op := p.prev.Type
	rule := parseRules[op]

	// Compile the RHS, one level tighter for left associativity.
	p.parsePrec(rule.Prec.Next())

	// Emit the operator instruction.
	switch op {
	case TBangEqual:
		p.emit(Inst{Op: OpEqual}, Inst{Op: OpNot})
	case TEqualEqual:
		p.emit(Inst{Op: OpEqual})
	case TGreater:
		p.emit(Inst{Op: OpGreater})
	case TGreaterEqual:
		p.emit(Inst{Op: OpLess}, Inst{Op: OpNot})
	case TLess:
		p.emit(Inst{Op: OpLess})
	case TLessEqual:
		p.emit(Inst{Op: OpGreater}, Inst{Op: OpNot})
	case TPlus:
		p.emit(Inst{Op: OpAdd})
	case TMinus:
		p.emit(Inst{Op: OpSub})
	case TStar:
		p.emit(Inst{Op: OpMul})
	case TSlash:
		p.emit(Inst{Op: OpDiv})
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) and(_canAssign bool) {
	// If the LHS is falsey, then `LHS and RHS == LHS`.
	// So we skip the RHS and leave the LHS as the result.
	endJump := p.emitJump(OpJumpUnless)
	// If the LHS is truthy, then `LHS and RHS == RHS`.
	// So we pop out the LHS.
	p.emit(Inst{Op: OpPop})
	p.parsePrec(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(_canAssign bool) {
	// If the LHS is truthy, then `LHS or RHS == LHS`.
	// So we skip the RHS and leave the LHS as the result.
	elseJump := p.emitJump(OpJumpUnless) // <-- else
	endJump := p.emitJump(OpJump)        // <-- then
	// If the LHS is falsey, then `LHS or RHS == RHS`.
	// So we pop out the LHS.
	p.patchJump(elseJump) // --> else
	p.emit(Inst{Op: OpPop})
	p.parsePrec(PrecOr)
	p.patchJump(endJump) // --> then
}

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

func (p *Parser) exprStmt() {
	p.expr()
	p.consume(TSemi, "Expect ';' after expression statement.")
	p.emit(Inst{Op: OpPop})
}

func (p *Parser) printStmt() {
	p.expr()
	p.consume(TSemi, "Expect ';' after value.")
	p.emit(Inst{Op: OpPrint})
}

func (p *Parser) block() {
	for !p.check(TRBrace) && !p.check(TEOF) {
		p.decl()
	}
	p.consume(TRBrace, "Expect '}' after block.")
}

func (p *Parser) ifStmt() {
	p.consume(TLParen, "Expect '(' after 'if'.")
	p.expr()
	p.consume(TRParen, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpUnless) // <-- `else` branch stops.
	p.emit(Inst{Op: OpPop})              // Drop the predicate before the `then` statement.
	p.stmt()

	elseJump := p.emitJump(OpJump) // <-- `then` branch stops.
	p.patchJump(thenJump)          // --> `else` branch continues.

	p.emit(Inst{Op: OpPop}) // Drop the predicate before the `else` statement.
	if p.match(TElse) {
		p.stmt()
	}
	p.patchJump(elseJump) // --> `then` branch continues.
}

func (p *Parser) whileStmt() {
	loopStart := p.currChunk().Count()
	p.consume(TLParen, "Expect '(' after 'while'.")
	p.expr()
	p.consume(TRParen, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpUnless)
	p.emit(Inst{Op: OpPop}) // Pop the condition before the body.
	p.stmt()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emit(Inst{Op: OpPop}) // Pop the condition on the way out.
}

// forStmt desugars `for (init; cond; incr) body` into a scoped while with
// the incr clause compiled before the body but executed after it.
func (p *Parser) forStmt() {
	p.beginScope()
	defer p.endScope()

	// init
	p.consume(TLParen, "Expect '(' after 'for'.")
	switch {
	case p.match(TSemi):
		// Noop.
	case p.match(TVar):
		p.varDecl()
	default:
		p.exprStmt()
	}

	// cond
	loopStart := p.currChunk().Count()
	exitJump := (*int)(nil)
	if !p.match(TSemi) {
		p.expr()
		p.consume(TSemi, "Expect ';' after loop condition.")
		exitJump = utils.Box(p.emitJump(OpJumpUnless)) // <-- cond is false
		p.emit(Inst{Op: OpPop})                        // Pop the condition.
	}

	// incr
	if !p.match(TRParen) {
		bodyJump := p.emitJump(OpJump) // <-- body
		incrStart := p.currChunk().Count()
		// Parse an exprStmt sans the trailing ';'.
		p.expr()
		p.emit(Inst{Op: OpPop}) // Pure side effect.
		p.consume(TRParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart) // --> towards the next iteration
		loopStart = incrStart
		p.patchJump(bodyJump) // --> body
	}

	// body
	p.stmt()
	p.emitLoop(loopStart) // --> incr if present, next iteration otherwise

	if exitJump != nil {
		p.patchJump(*exitJump)  // --> cond is false
		p.emit(Inst{Op: OpPop}) // Pop the condition.
	}
}

func (p *Parser) stmt() {
	switch {
	case p.match(TPrint):
		p.printStmt()
	case p.match(TFor):
		p.forStmt()
	case p.match(TIf):
		p.ifStmt()
	case p.match(TWhile):
		p.whileStmt()
	case p.match(TLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.exprStmt()
	}
}

/* Variable declaration */

// varDecl compiles `var name;` and `var name = init;`. The name constant is
// interned before the initializer runs, so globals keep stable pool slots.
func (p *Parser) varDecl() {
	global := p.parseVar("Expect variable name.")
	switch {
	case p.match(TEqual):
		p.expr()
	default:
		p.emit(Inst{Op: OpNil})
	}
	p.consume(TSemi, "Expect ';' after variable declaration.")
	p.defVar(global)
}

// parseVar consumes the declared identifier. At global scope it returns the
// name's constant-pool slot; at local scope it declares an uninitialized
// local and returns nil.
func (p *Parser) parseVar(errorMsg string) *int {
	target := p.consume(TIdent, errorMsg)
	if target == nil {
		p.advance()
		return nil // Early return if the assignee is not valid.
	}
	if p.depth > 0 {
		p.declVar()
		return nil // Locals are not resolved by name, but stay on the stack.
	}
	idx := p.currChunk().IdentConst(target.Lexeme)
	p.checkConst(idx)
	return &idx
}

// declVar registers a new local, still marked uninitialized so that
// `var x = x;` is rejected when the initializer mentions the name.
func (p *Parser) declVar() {
	name := p.prev
	if p.locals.IsRedeclared(name, p.depth) {
		p.Error("Already a variable with this name in scope.")
	}
	if p.locals.Full() {
		p.Error("Too many local variables in function.")
		return
	}
	p.locals.Add(name)
}

func (p *Parser) defVar(global *int) {
	if global == nil || p.depth > 0 {
		// Local vars. Mark it as initialized.
		p.markInit()
		return
	}
	p.emit(Inst{OpDefGlobal, *global})
}

func (p *Parser) markInit() {
	if p.depth == 0 || p.locals.Size() == 0 {
		return
	}
	p.locals.MarkInitialized(p.depth)
}

func (p *Parser) decl() {
	switch {
	case p.match(TVar):
		p.varDecl()
	default:
		p.stmt()
	}
	if p.panicMode {
		p.sync()
	}
}

/* Pratt rule table */

type ParseFn = func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules []ParseRule

func init() {
	parseRules = []ParseRule{
		TLParen:       {(*Parser).grouping, nil, PrecNone},
		TMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TPlus:         {nil, (*Parser).binary, PrecTerm},
		TSlash:        {nil, (*Parser).binary, PrecFactor},
		TStar:         {nil, (*Parser).binary, PrecFactor},
		TBang:         {(*Parser).unary, nil, PrecNone},
		TBangEqual:    {nil, (*Parser).binary, PrecEqual},
		TEqualEqual:   {nil, (*Parser).binary, PrecEqual},
		TGreater:      {nil, (*Parser).binary, PrecComp},
		TGreaterEqual: {nil, (*Parser).binary, PrecComp},
		TLess:         {nil, (*Parser).binary, PrecComp},
		TLessEqual:    {nil, (*Parser).binary, PrecComp},
		TIdent:        {(*Parser).var_, nil, PrecNone},
		TStr:          {(*Parser).str, nil, PrecNone},
		TNum:          {(*Parser).num, nil, PrecNone},
		TAnd:          {nil, (*Parser).and, PrecAnd},
		TFalse:        {(*Parser).lit, nil, PrecNone},
		TNil:          {(*Parser).lit, nil, PrecNone},
		TOr:           {nil, (*Parser).or, PrecOr},
		TTrue:         {(*Parser).lit, nil, PrecNone},
		TEOF:          {},
	}
}

func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	// Parse LHS.
	prefix := parseRules[p.prev.Type].Prefix
	if prefix == nil {
		if p.prev.Type == TEOF {
			return
		}
		p.Error(fmt.Sprintf("No prefix function parsed for precedence %s.", prec))
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	// Parse RHS while there is one maintaining rule.Prec >= prec.
	for {
		rule := parseRules[p.curr.Type]
		if rule.Prec < prec {
			break
		}
		p.advance()
		if rule.Infix == nil {
			p.Error("No infix function parsed.")
			return
		}
		rule.Infix(p, canAssign)
	}

	if canAssign && p.match(TEqual) {
		p.Error("Invalid assignment target.")
		p.advance()
	}
}

/* Parsing helpers */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

// advance moves the cursor one token forward, reporting and skipping error
// tokens the scanner left behind.
func (p *Parser) advance() {
	p.prev = p.curr
	for {
		p.curr = p.tokens[p.pos]
		if p.curr.Type == TErr {
			p.ErrorAtCurr(p.curr.Lexeme)
			p.pos++
			continue
		}
		if p.pos < len(p.tokens)-1 {
			p.pos++
		}
		return
	}
}

func (p *Parser) match(ty TokenType) (matched bool) {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

// consume expects the current token's kind discriminant to be ty; the
// payload never participates in the comparison.
func (p *Parser) consume(ty TokenType, errorMsg string) *Token {
	if !p.check(ty) {
		p.ErrorAtCurr(errorMsg)
		return nil
	}
	p.advance()
	return &p.prev
}

/* Scopes */

func (p *Parser) beginScope() { p.depth++ }

func (p *Parser) endScope() {
	p.depth--
	// The runtime stack unwinds in lockstep with lexical scope.
	for n := p.locals.PopToDepth(p.depth); n > 0; n-- {
		p.emit(Inst{Op: OpPop})
	}
}

/* Jumps */

// emitJump writes op with a hole for its forward displacement and returns
// the instruction's offset for the later patchJump.
func (p *Parser) emitJump(op OpCode) (offset int) {
	p.emit(Inst{op, Hole})
	return p.currChunk().Count() - 1
}

// patchJump sets the displacement of the jump at offset so that it lands on
// the next instruction to be emitted.
func (p *Parser) patchJump(offset int) {
	chunk := p.currChunk()
	jump := chunk.Count() - offset - 1 // The instructions to jump over.
	if jump > math.MaxUint16 {
		p.Error("Too much code to jump over.")
	}
	chunk.code[offset].Operand = jump
}

func (p *Parser) emitLoop(start int) {
	// The delta counts from the instruction after the OpLoop back to start.
	backJump := p.currChunk().Count() + 1 - start
	if backJump > math.MaxUint16 {
		p.Error("Loop body too large")
	}
	p.emit(Inst{OpLoop, backJump})
}

func (p *Parser) endCompiler() {
	p.emit(Inst{OpReturn, 0})
	for i, inst := range p.currChunk().code {
		switch inst.Op {
		case OpJump, OpJumpUnless:
			debug.Assertf(inst.Operand != Hole, "unpatched jump at offset %d", i)
		}
	}
	if debug.DEBUG {
		logrus.Debugln(p.currChunk().Disassemble("endCompiler"))
	}
}

/* Error handling */

// syncPoints are the token kinds that can start a statement-level construct.
var syncPoints = []TokenType{TClass, TFun, TVar, TFor, TIf, TWhile, TPrint, TReturn}

// sync skips tokens until a statement boundary so that one mistake does not
// cascade into a pile of diagnostics.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.checkPrev(TSemi) {
		if slices.Contains(syncPoints, p.curr.Type) {
			return
		}
		p.advance()
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	// Don't collect errors while we're syncing.
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	err := &e.CompilationError{Line: tk.Line, Col: tk.Col, Reason: reason}

	if debug.DEBUG {
		logrus.Debugln(p.currChunk().Disassemble("ErrorAt"))
		logrus.Debugln(err)
	}

	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.hadError }
