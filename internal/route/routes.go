package route

import (
	"encoding/json"
	"image/color"

	"github.com/ayusman/holdfast/internal/hold"
)

// Routes maps labels to the holds classified under them. Labels keep the
// order in which they first received a hold and holds keep detector order.
type Routes struct {
	order []Label
	holds map[Label][]hold.Detection
}

// NewRoutes returns an empty route map.
func NewRoutes() *Routes {
	return &Routes{holds: make(map[Label][]hold.Detection)}
}

// Add appends d to the route for l.
func (r *Routes) Add(l Label, d hold.Detection) {
	if _, ok := r.holds[l]; !ok {
		r.order = append(r.order, l)
	}
	r.holds[l] = append(r.holds[l], d)
}

// Labels returns the route labels in insertion order.
func (r *Routes) Labels() []Label {
	out := make([]Label, len(r.order))
	copy(out, r.order)
	return out
}

// Holds returns a copy of the holds for l.
func (r *Routes) Holds(l Label) []hold.Detection {
	src := r.holds[l]
	out := make([]hold.Detection, len(src))
	copy(out, src)
	return out
}

// Len returns the number of routes.
func (r *Routes) Len() int {
	return len(r.order)
}

// Total returns the number of holds across all routes.
func (r *Routes) Total() int {
	n := 0
	for _, l := range r.order {
		n += len(r.holds[l])
	}
	return n
}

// LabelOf returns the route d was classified under.
func (r *Routes) LabelOf(d hold.Detection) (Label, bool) {
	for _, l := range r.order {
		if hold.Contains(r.holds[l], d) {
			return l, true
		}
	}
	return 0, false
}

type routeJSON struct {
	Label Label            `json:"label"`
	Color color.RGBA       `json:"color"`
	Holds []hold.Detection `json:"holds"`
}

// MarshalJSON encodes the routes as an ordered list.
func (r *Routes) MarshalJSON() ([]byte, error) {
	out := make([]routeJSON, 0, len(r.order))
	for _, l := range r.order {
		out = append(out, routeJSON{Label: l, Color: l.Color(), Holds: r.holds[l]})
	}
	return json.Marshal(out)
}
