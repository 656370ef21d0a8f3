package endpoint

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"text/template"

	"github.com/google/uuid"
)

// TemplateEngine renders request bodies. Templates are parsed once at table
// construction and executed for every dispatched request.
type TemplateEngine struct {
	seq     atomic.Uint64
	funcMap template.FuncMap
}

// TemplateData is passed to the execution context
type TemplateData struct {
	Endpoint string
	UUID     string
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{}

	e.funcMap = template.FuncMap{
		"randomInt":    e.randomInt,
		"randomUUID":   e.randomUUID,
		"randomChoice": e.randomChoice,
		"seq":          e.next,
		"uuid":         e.randomUUID, // Alias
	}

	return e
}

// Preprocess converts simple variables {{uuid}} to Go template syntax {{.UUID}}
func (e *TemplateEngine) Preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{uuid}}", "{{.UUID}}")
	s = strings.ReplaceAll(s, "{{endpoint}}", "{{.Endpoint}}")
	return s
}

func (e *TemplateEngine) Parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(e.funcMap).Parse(e.Preprocess(text))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}
	return t, nil
}

func (e *TemplateEngine) Execute(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// --- Functions ---

func (e *TemplateEngine) randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.IntN(max-min) + min
}

func (e *TemplateEngine) randomUUID() string {
	return uuid.New().String()
}

func (e *TemplateEngine) randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.IntN(len(choices))]
}

func (e *TemplateEngine) next() uint64 {
	return e.seq.Add(1)
}
