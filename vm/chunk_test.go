package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWriteKeepsLinesParallel(t *testing.T) {
	t.Parallel()
	c := NewChunk()
	c.Write(Inst{Op: OpNil}, 1)
	c.Write(Inst{Op: OpPop}, 1)
	c.Write(Inst{OpReturn, 0}, 2)
	assert.Equal(t, len(c.code), len(c.lines))
	assert.Equal(t, []int{1, 1, 2}, c.lines)
}

func TestChunkAddConstEmits(t *testing.T) {
	t.Parallel()
	c := NewChunk()
	idx := c.AddConst(VNum(1.2), 7)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []Inst{{OpConst, 0}}, c.code)
	assert.Equal(t, []int{7}, c.lines)

	idx = c.AddConst(NewVStr("hi"), 7)
	assert.Equal(t, 1, idx)
	assert.Equal(t, NewVStr("hi"), c.consts[1])
}

func TestChunkIdentConstDedups(t *testing.T) {
	t.Parallel()
	c := NewChunk()
	a := c.IdentConst("a")
	b := c.IdentConst("b")
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	// Mentioning a global again reuses its slot.
	assert.Equal(t, a, c.IdentConst("a"))
	assert.Len(t, c.consts, 2)

	name, ok := c.GlobalName(a)
	assert.True(t, ok)
	assert.Equal(t, "a", name)
	_, ok = c.GlobalName(42)
	assert.False(t, ok)
}

func TestChunkAddIdentConst(t *testing.T) {
	t.Parallel()
	c := NewChunk()
	c.AddIdentConst("a", 1, OpDefGlobal)
	c.AddIdentConst("a", 2, OpGetGlobal)
	c.AddIdentConst("a", 3, OpSetGlobal)
	assert.Equal(t, []Inst{{OpDefGlobal, 0}, {OpGetGlobal, 0}, {OpSetGlobal, 0}}, c.code)
	assert.Len(t, c.consts, 1)
}

func TestChunkDisassemble(t *testing.T) {
	t.Parallel()
	c := NewChunk()
	c.AddConst(VNum(1.2), 123)
	c.Write(Inst{OpReturn, 0}, 123)
	res := c.Disassemble("test")
	assert.Contains(t, res, "== test ==")
	assert.Contains(t, res, "OpConst")
	assert.Contains(t, res, "'1.2'")
	assert.Contains(t, res, "OpReturn")
}
