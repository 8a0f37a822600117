package sheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

func mustPos(t *testing.T, s string) position.Position {
	t.Helper()
	p, ok := position.Parse(s)
	assert.True(t, ok)
	return p
}

func setCell(t *testing.T, s *Sheet, addr, text string) {
	t.Helper()
	assert.NoError(t, s.SetCell(mustPos(t, addr), text))
}

func getValue(t *testing.T, s *Sheet, addr string) Value {
	t.Helper()
	c, err := s.GetCell(mustPos(t, addr))
	assert.NoError(t, err)
	assert.NotNil(t, c)
	return c.Value()
}

func getText(t *testing.T, s *Sheet, addr string) string {
	t.Helper()
	c, err := s.GetCell(mustPos(t, addr))
	assert.NoError(t, err)
	assert.NotNil(t, c)
	return c.Text()
}

func TestSheet_arithmeticError(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=1/0")
	v := getValue(t, s, "A1")
	assert.Equal(t, ValueError, v.Kind)
	assert.Equal(t, "#ARITHM!", v.Err.Error())
}

func TestSheet_referenceChainAndInvalidation(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=B2")
	setCell(t, s, "B2", "3")
	assert.Equal(t, float64(3), getValue(t, s, "A1").Number)

	setCell(t, s, "B2", "text")
	v := getValue(t, s, "A1")
	assert.Equal(t, ValueError, v.Kind)
	assert.Equal(t, "#VALUE!", v.Err.Error())

	setCell(t, s, "B2", "4")
	assert.Equal(t, float64(4), getValue(t, s, "A1").Number)
}

func TestSheet_cycleRejectsWrite(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=B1")
	err := s.SetCell(mustPos(t, "B1"), "=A1")
	assert.ErrorIs(t, err, ErrCircularDependency)
	assert.Equal(t, "", getText(t, s, "B1"))
}

func TestSheet_selfReferenceCycle(t *testing.T) {
	s := New()
	err := s.SetCell(mustPos(t, "A1"), "=A1")
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestSheet_canonicalPrintOnWrite(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=(1+2)*3")
	assert.Equal(t, "=(1+2)*3", getText(t, s, "A1"))

	setCell(t, s, "A1", "= 1 + 2 * 3 ")
	assert.Equal(t, "=1+2*3", getText(t, s, "A1"))
	assert.Equal(t, float64(7), getValue(t, s, "A1").Number)
}

func TestSheet_escapedTextCoercesToNumber(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "'123")
	v := getValue(t, s, "A1")
	assert.Equal(t, ValueText, v.Kind)
	assert.Equal(t, "123", v.Text)

	setCell(t, s, "B1", "=A1")
	assert.Equal(t, float64(123), getValue(t, s, "B1").Number)
}

func TestSheet_clearCellDisposalPolicy(t *testing.T) {
	s := New()
	setCell(t, s, "C3", "x")
	assert.NoError(t, s.ClearCell(mustPos(t, "C3")))
	rows, cols := s.PrintableSize()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 0, cols)

	setCell(t, s, "A1", "=C3")
	assert.NoError(t, s.ClearCell(mustPos(t, "C3")))
	rows, cols = s.PrintableSize()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)

	c, err := s.GetCell(mustPos(t, "C3"))
	assert.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "", c.Text())
}

func TestSheet_fibonacci(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "0")
	setCell(t, s, "A2", "1")
	for i := 3; i < 15; i++ {
		cell := "A" + itoa(i)
		expr := "=A" + itoa(i-2) + "+A" + itoa(i-1)
		setCell(t, s, cell, expr)
	}
	assert.Equal(t, float64(233), getValue(t, s, "A14").Number)
}

func TestSheet_bigCycle(t *testing.T) {
	s := New()
	for i := 1; i <= 15; i++ {
		cell := "A" + itoa(i)
		expr := "=A" + itoa(i+1)
		setCell(t, s, cell, expr)
	}
	err := s.SetCell(mustPos(t, "A15"), "=A1")
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestSheet_malformedFormulaLeavesCellUnchanged(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "42")
	err := s.SetCell(mustPos(t, "A1"), "=1+")
	assert.ErrorIs(t, err, ErrMalformedFormula)
	assert.Equal(t, "42", getText(t, s, "A1"))
	assert.Equal(t, "42", getValue(t, s, "A1").Text)
}

func TestSheet_invalidPosition(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SetCell(position.Invalid, "1"), ErrInvalidPosition)
	_, err := s.GetCell(position.Invalid)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	assert.ErrorIs(t, s.ClearCell(position.Invalid), ErrInvalidPosition)
}

func TestSheet_refError(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=XFE1")
	v := getValue(t, s, "A1")
	assert.Equal(t, ValueError, v.Kind)
	assert.Equal(t, "#REF!", v.Err.Error())
}

func TestSheet_printValuesAndTexts(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "12")
	setCell(t, s, "B1", "=A1*2")
	setCell(t, s, "A2", "hi")

	var values strings.Builder
	assert.NoError(t, s.PrintValues(&values))
	assert.Equal(t, "12\t24\nhi\t\n", values.String())

	var texts strings.Builder
	assert.NoError(t, s.PrintTexts(&texts))
	assert.Equal(t, "12\t=A1*2\nhi\t\n", texts.String())
}

func TestSheet_emptyCellContributesZero(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=B1+1")
	assert.Equal(t, float64(1), getValue(t, s, "A1").Number)
}

func TestSheet_formulaErrorPropagatesCategory(t *testing.T) {
	s := New()
	setCell(t, s, "A1", "=1/0")
	setCell(t, s, "B1", "=A1")
	v := getValue(t, s, "B1")
	assert.Equal(t, ValueError, v.Kind)
	assert.Equal(t, formulaerror.Arithmetic, v.Err.(*formulaerror.FormulaError).Category)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{byte('0' + i%10)}, buf...)
		i /= 10
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}
