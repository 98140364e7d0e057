package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueArithmetic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, VNum(3), VAdd(VNum(1), VNum(2)))
	assert.Equal(t, VNum(-1), VSub(VNum(1), VNum(2)))
	assert.Equal(t, VNum(6), VMul(VNum(2), VNum(3)))
	assert.Equal(t, VNum(2), VDiv(VNum(6), VNum(3)))
	assert.Equal(t, VNum(-1), VNeg(VNum(1)))
	assert.Equal(t, NewVStr("ab"), VAdd(NewVStr("a"), NewVStr("b")))
}

// Arithmetic between anything but two numbers (or two strings under '+')
// yields the error sentinel.
func TestValueArithmeticSentinel(t *testing.T) {
	t.Parallel()
	assert.True(t, IsErr(VAdd(VNum(1), NewVStr("a"))))
	assert.True(t, IsErr(VAdd(VBool(true), VBool(true))))
	assert.True(t, IsErr(VSub(NewVStr("a"), NewVStr("b"))))
	assert.True(t, IsErr(VMul(VNil{}, VNum(2))))
	assert.True(t, IsErr(VDiv(VNum(2), VNil{})))
	assert.True(t, IsErr(VNeg(NewVStr("a"))))
	assert.False(t, IsErr(VAdd(VNum(1), VNum(2))))
}

func TestValueOrderingOnlyNumbers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, VBool(true), VLess(VNum(1), VNum(2)))
	assert.Equal(t, VBool(false), VGreater(VNum(1), VNum(2)))
	assert.True(t, IsErr(VLess(NewVStr("a"), NewVStr("b"))))
	assert.True(t, IsErr(VGreater(VBool(true), VNum(1))))
}

func TestValueEquality(t *testing.T) {
	t.Parallel()
	assert.Equal(t, VBool(true), VEq(VNum(1), VNum(1)))
	assert.Equal(t, VBool(true), VEq(VNil{}, VNil{}))
	assert.Equal(t, VBool(true), VEq(NewVStr("a"), NewVStr("a")))
	assert.Equal(t, VBool(true), VEq(VBool(false), VBool(false)))
	// Cross-variant comparisons are never equal.
	assert.Equal(t, VBool(false), VEq(VNum(1), NewVStr("1")))
	assert.Equal(t, VBool(false), VEq(VNil{}, VBool(false)))
	assert.Equal(t, VBool(false), VEq(VNum(0), VNil{}))
}

func TestValueTruthiness(t *testing.T) {
	t.Parallel()
	assert.Equal(t, VBool(false), VTruthy(VNil{}))
	assert.Equal(t, VBool(false), VTruthy(VBool(false)))
	assert.Equal(t, VBool(true), VTruthy(VBool(true)))
	assert.Equal(t, VBool(true), VTruthy(VNum(0)))
	assert.Equal(t, VBool(true), VTruthy(NewVStr("")))
}

func TestValueStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "nil", VNil{}.String())
	assert.Equal(t, "true", VBool(true).String())
	assert.Equal(t, "1.5", VNum(1.5).String())
	assert.Equal(t, "hi", NewVStr("hi").String())
	assert.Equal(t, "Value<Error>", VErr{}.String())
}
