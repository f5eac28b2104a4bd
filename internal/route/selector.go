package route

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/ayusman/holdfast/internal/hold"
)

// ErrNoRoutes is returned when there is nothing to choose from.
var ErrNoRoutes = errors.New("route: no routes available")

// SelectionError reports a route index outside [0, N).
type SelectionError struct {
	Index int
	N     int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("route %d out of range [0, %d)", e.Index, e.N)
}

// Selection is the route the climber chose.
type Selection struct {
	Label Label            `json:"label"`
	Holds []hold.Detection `json:"holds"`
	Color color.RGBA       `json:"color"`
}

// Choose resolves an index in routes order to a Selection.
func Choose(routes *Routes, index int) (Selection, error) {
	if routes == nil || routes.Len() == 0 {
		return Selection{}, ErrNoRoutes
	}
	if index < 0 || index >= routes.Len() {
		return Selection{}, &SelectionError{Index: index, N: routes.Len()}
	}

	l := routes.order[index]
	return Selection{
		Label: l,
		Holds: routes.Holds(l),
		Color: l.Color(),
	}, nil
}

// Selector asks the climber to pick a route over a line-based text exchange.
type Selector struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewSelector creates a Selector reading answers from in and writing
// prompts to out.
func NewSelector(in io.Reader, out io.Writer) *Selector {
	return &Selector{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Select lists the routes and blocks until a valid index is entered.
// Invalid answers are reported and the prompt is repeated.
func (s *Selector) Select(routes *Routes) (Selection, error) {
	if routes == nil || routes.Len() == 0 {
		return Selection{}, ErrNoRoutes
	}

	for {
		fmt.Fprintln(s.out, "These are the available routes:")
		for i, l := range routes.order {
			fmt.Fprintf(s.out, "%d. %s (%d holds)\n", i, l, len(routes.holds[l]))
		}
		fmt.Fprint(s.out, "Please enter the number that corresponds to the route: ")

		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return Selection{}, fmt.Errorf("read route choice: %w", err)
			}
			return Selection{}, fmt.Errorf("read route choice: %w", io.ErrUnexpectedEOF)
		}

		index, err := strconv.Atoi(strings.TrimSpace(s.in.Text()))
		if err != nil {
			fmt.Fprintln(s.out, "Invalid input. Please enter a number.")
			continue
		}

		sel, err := Choose(routes, index)
		var selErr *SelectionError
		if errors.As(err, &selErr) {
			fmt.Fprintln(s.out, "Invalid input. Please enter a number within the provided range.")
			continue
		}
		if err != nil {
			return Selection{}, err
		}

		fmt.Fprintf(s.out, "You selected the %s route!\n", sel.Label)
		return sel, nil
	}
}
