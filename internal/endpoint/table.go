package endpoint

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"text/template"

	"github.com/google/uuid"
)

var ErrEmptyTable = errors.New("endpoint table has no selectable entries")

// Table is the weighted selection table. Every descriptor appears Weight times
// in slots, so a uniform index gives each one probability weight/sum.
// It is never mutated after NewTable returns.
type Table struct {
	descs     []Descriptor
	slots     []int
	templates []*template.Template
	engine    *TemplateEngine
}

func NewTable(descs []Descriptor, engine *TemplateEngine) (*Table, error) {
	if engine == nil {
		engine = NewTemplateEngine()
	}

	t := &Table{
		descs:     make([]Descriptor, len(descs)),
		templates: make([]*template.Template, len(descs)),
		engine:    engine,
	}
	copy(t.descs, descs)

	for i, d := range t.descs {
		if d.Weight < 0 {
			return nil, fmt.Errorf("endpoint %q: negative weight %d", d.Name, d.Weight)
		}
		for w := 0; w < d.Weight; w++ {
			t.slots = append(t.slots, i)
		}
		if d.HasBody() {
			tmpl, err := engine.Parse(d.Name, d.Body)
			if err != nil {
				return nil, err
			}
			t.templates[i] = tmpl
		}
	}

	if len(t.slots) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// Len is the length of the expanded sequence, i.e. the sum of all weights.
func (t *Table) Len() int {
	return len(t.slots)
}

func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descs))
	copy(out, t.descs)
	return out
}

// Pick returns a uniformly chosen entry of the expanded sequence. rnd may be
// nil, in which case the global source is used.
func (t *Table) Pick(rnd *rand.Rand) Descriptor {
	var n int
	if rnd == nil {
		n = rand.IntN(len(t.slots))
	} else {
		n = rnd.IntN(len(t.slots))
	}
	return t.descs[t.slots[n]]
}

// Render produces the request body for d. Descriptors without a body yield "".
func (t *Table) Render(d Descriptor) (string, error) {
	for i := range t.descs {
		if t.descs[i].Name != d.Name {
			continue
		}
		if t.templates[i] == nil {
			return "", nil
		}
		return t.engine.Execute(t.templates[i], TemplateData{
			Endpoint: d.Name,
			UUID:     uuid.New().String(),
		})
	}
	return "", fmt.Errorf("endpoint %q not in table", d.Name)
}
