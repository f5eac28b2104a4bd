package route

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourRoutes() *Routes {
	r := NewRoutes()
	r.Add(Red, det(0, 0, 10, 10))
	r.Add(Blue, det(20, 0, 30, 10))
	r.Add(Green, det(40, 0, 50, 10))
	r.Add(Green, det(60, 0, 70, 10))
	r.Add(Uncoloured, det(80, 0, 90, 10))
	return r
}

func TestChoose(t *testing.T) {
	routes := fourRoutes()

	sel, err := Choose(routes, 2)
	require.NoError(t, err)
	assert.Equal(t, Green, sel.Label)
	assert.Len(t, sel.Holds, 2)
	assert.Equal(t, Green.Color(), sel.Color)

	_, err = Choose(routes, 5)
	var selErr *SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, 5, selErr.Index)
	assert.Equal(t, 4, selErr.N)

	_, err = Choose(routes, -1)
	assert.True(t, errors.As(err, &selErr))

	_, err = Choose(NewRoutes(), 0)
	assert.ErrorIs(t, err, ErrNoRoutes)
}

func TestSelector_Select(t *testing.T) {
	var out bytes.Buffer
	s := NewSelector(strings.NewReader("1\n"), &out)

	sel, err := s.Select(fourRoutes())
	require.NoError(t, err)
	assert.Equal(t, Blue, sel.Label)

	text := out.String()
	assert.Contains(t, text, "These are the available routes:")
	assert.Contains(t, text, "0. Red (1 holds)")
	assert.Contains(t, text, "2. Green (2 holds)")
	assert.Contains(t, text, "You selected the Blue route!")
}

func TestSelector_RepromptsOnBadInput(t *testing.T) {
	var out bytes.Buffer
	s := NewSelector(strings.NewReader("5\nabc\n 2 \n"), &out)

	sel, err := s.Select(fourRoutes())
	require.NoError(t, err)
	assert.Equal(t, Green, sel.Label)

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "These are the available routes:"))
	assert.Contains(t, text, "Invalid input. Please enter a number within the provided range.")
	assert.Contains(t, text, "Invalid input. Please enter a number.")
}

func TestSelector_EndOfInput(t *testing.T) {
	s := NewSelector(strings.NewReader("x\n"), io.Discard)

	_, err := s.Select(fourRoutes())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSelector_NoRoutes(t *testing.T) {
	s := NewSelector(strings.NewReader("0\n"), io.Discard)

	_, err := s.Select(NewRoutes())
	assert.ErrorIs(t, err, ErrNoRoutes)
}
