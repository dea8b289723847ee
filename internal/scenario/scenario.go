package scenario

import (
	"bytes"
	"os"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/model-eval/internal/eval"
)

// Prompt is a reusable templated prompt. Kind tags the expected output shape
// so backends (notably the offline stub registry) can select a strategy
// without inspecting prompt text.
type Prompt struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Template string `yaml:"template"`
}

// Scenario is one named generation task: a prompt reference plus template
// variables. The "topic" variable drives keyword coverage scoring.
type Scenario struct {
	ID     string            `yaml:"id"`
	Prompt string            `yaml:"prompt"`
	Vars   map[string]string `yaml:"vars"`
}

// Topic returns the scenario's topic variable.
func (s Scenario) Topic() string {
	return s.Vars["topic"]
}

// Definition is a scenario/prompt file.
type Definition struct {
	Prompts   []Prompt   `yaml:"prompts"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads and validates a scenario definition file.
func Load(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse %s", path)
	}

	if len(def.Prompts) == 0 {
		return nil, eris.Errorf("scenario: %s defines no prompts", path)
	}
	if len(def.Scenarios) == 0 {
		return nil, eris.Errorf("scenario: %s defines no scenarios", path)
	}
	for _, s := range def.Scenarios {
		if s.ID == "" {
			return nil, eris.Errorf("scenario: %s contains a scenario without an id", path)
		}
		if s.Topic() == "" {
			return nil, eris.Errorf("scenario: %s is missing a topic variable", s.ID)
		}
	}

	return &def, nil
}

// prompt finds a prompt by id; an empty id selects the first prompt.
func (d *Definition) prompt(id string) (*Prompt, error) {
	if id == "" {
		return &d.Prompts[0], nil
	}
	for i := range d.Prompts {
		if d.Prompts[i].ID == id {
			return &d.Prompts[i], nil
		}
	}
	return nil, eris.Errorf("scenario: unknown prompt %q", id)
}

// Tasks renders every scenario against its prompt template. defaultPrompt
// overrides scenarios that don't name a prompt themselves; pass "" to use
// the file's first prompt.
func (d *Definition) Tasks(defaultPrompt string) ([]eval.Task, error) {
	tasks := make([]eval.Task, 0, len(d.Scenarios))
	for _, s := range d.Scenarios {
		promptID := s.Prompt
		if promptID == "" {
			promptID = defaultPrompt
		}
		p, err := d.prompt(promptID)
		if err != nil {
			return nil, err
		}

		tmpl, err := template.New(p.ID).Option("missingkey=error").Parse(p.Template)
		if err != nil {
			return nil, eris.Wrapf(err, "scenario: parse template %s", p.ID)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, s.Vars); err != nil {
			return nil, eris.Wrapf(err, "scenario: render %s for %s", p.ID, s.ID)
		}

		tasks = append(tasks, eval.Task{
			ScenarioID: s.ID,
			Topic:      s.Topic(),
			Prompt:     buf.String(),
			Kind:       p.Kind,
		})
	}
	return tasks, nil
}
