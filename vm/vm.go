package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"

	e "github.com/Patches72790/grox/errors"
)

// VM executes compiled chunks. Globals persist across Interpret calls, so a
// single VM can back a whole REPL session.
type VM struct {
	chunk   *Chunk
	ip      int
	stack   *Stack
	globals map[string]Value
	out     io.Writer
}

func NewVM() *VM {
	return &VM{stack: NewStack(), globals: map[string]Value{}, out: os.Stdout}
}

// SetOutput redirects where OpPrint writes.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// Interpret compiles and runs src. On a compile error the chunk is
// discarded unexecuted.
func (vm *VM) Interpret(src string) error {
	chunk, err := NewParser().Compile(src)
	if err != nil {
		return err
	}
	return vm.Run(chunk)
}

// Run executes a compiled chunk from its first instruction. The chunk is
// treated as read-only.
func (vm *VM) Run(chunk *Chunk) error {
	vm.chunk = chunk
	vm.ip = 0
	vm.stack.Reset()
	return vm.run()
}

// REPL reads lines, compiling and running each against the persistent VM.
// Diagnostics are reported and the loop keeps going.
func (vm *VM) REPL(prompt string) error {
	rl, err := readline.New(prompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		switch err {
		case nil:
		case readline.ErrInterrupt, io.EOF:
			return nil
		default:
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := vm.Interpret(line + "\n"); err != nil {
			logrus.Errorln(err)
		}
	}
}

func (vm *VM) run() error {
	if vm.chunk == nil {
		return &e.RuntimeError{Line: -1, Reason: "chunk uninitialized"}
	}

	for {
		logrus.Debugln(vm.stack)
		oldIP := vm.ip
		logrus.Debugln(vm.chunk.DisassembleInst(oldIP))

		runtimeErr := func(reason string) error {
			return &e.RuntimeError{Line: vm.chunk.lines[oldIP], Reason: reason}
		}

		inst := vm.chunk.code[vm.ip]
		vm.ip++

		switch inst.Op {
		case OpConst:
			if err := vm.stack.Push(vm.chunk.consts[inst.Operand]); err != nil {
				return runtimeErr(err.Error())
			}
		case OpNil:
			vm.push(VNil{})
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			vm.push(vm.stack.At(inst.Operand))
		case OpSetLocal:
			// Assignment is an expression; the value stays on top.
			vm.stack.SetAt(inst.Operand, vm.peek(0))

		case OpDefGlobal:
			name := vm.chunk.consts[inst.Operand].(VStr)
			vm.globals[name.Str()] = vm.pop()
		case OpGetGlobal:
			name := vm.chunk.consts[inst.Operand].(VStr)
			val, ok := vm.globals[name.Str()]
			if !ok {
				return runtimeErr(fmt.Sprintf("Undefined variable '%s'.", name))
			}
			vm.push(val)
		case OpSetGlobal:
			name := vm.chunk.consts[inst.Operand].(VStr)
			if _, ok := vm.globals[name.Str()]; !ok {
				return runtimeErr(fmt.Sprintf("Undefined variable '%s'.", name))
			}
			vm.globals[name.Str()] = vm.peek(0)

		case OpEqual:
			rhs := vm.pop()
			vm.push(VEq(vm.pop(), rhs))
		case OpGreater:
			rhs := vm.pop()
			res := VGreater(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be numbers.")
			}
			vm.push(res)
		case OpLess:
			rhs := vm.pop()
			res := VLess(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be numbers.")
			}
			vm.push(res)

		case OpAdd:
			rhs := vm.pop()
			res := VAdd(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be two numbers or two strings.")
			}
			vm.push(res)
		case OpSub:
			rhs := vm.pop()
			res := VSub(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be numbers.")
			}
			vm.push(res)
		case OpMul:
			rhs := vm.pop()
			res := VMul(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be numbers.")
			}
			vm.push(res)
		case OpDiv:
			rhs := vm.pop()
			res := VDiv(vm.pop(), rhs)
			if IsErr(res) {
				return runtimeErr("Operands must be numbers.")
			}
			vm.push(res)

		case OpNot:
			vm.push(!VTruthy(vm.pop()))
		case OpNeg:
			res := VNeg(vm.pop())
			if IsErr(res) {
				return runtimeErr("Operand must be a number.")
			}
			vm.push(res)

		case OpPrint:
			fmt.Fprintf(vm.out, "%s\n", vm.pop())

		case OpJump:
			vm.ip += inst.Operand
		case OpJumpUnless:
			if !VTruthy(vm.peek(0)) {
				vm.ip += inst.Operand
			}
		case OpLoop:
			vm.ip -= inst.Operand

		case OpReturn:
			return nil

		default:
			return runtimeErr(fmt.Sprintf("unknown instruction '%d'", inst.Op))
		}
	}
}

// Outside of constant loads, a stack fault means the compiled code itself
// is malformed, so the unchecked accessors panic.

func (vm *VM) push(val Value) {
	if err := vm.stack.Push(val); err != nil {
		panic(err)
	}
}

func (vm *VM) pop() Value {
	val, err := vm.stack.Pop()
	if err != nil {
		panic(err)
	}
	return val
}

func (vm *VM) peek(distance int) Value {
	val, err := vm.stack.Peek(distance)
	if err != nil {
		panic(err)
	}
	return val
}
