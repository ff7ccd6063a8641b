// Package casefile loads power network cases from YAML and feeds them
// into a system. Omitted parameters fall back to the defaults the device
// classes declare.
package casefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-powerflow/pkg/system"
)

// Case is a complete network description.
type Case struct {
	// Name labels the case in logs and output.
	Name string `yaml:"name"`

	Buses  []BusSpec   `yaml:"buses"`
	Loads  []LoadSpec  `yaml:"loads,omitempty"`
	Lines  []LineSpec  `yaml:"lines,omitempty"`
	Shunts []ShuntSpec `yaml:"shunts,omitempty"`
	PVs    []PVSpec    `yaml:"pv_generators,omitempty"`
	Slacks []SlackSpec `yaml:"slack_generators,omitempty"`
}

type BusSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Vn   *float64 `yaml:"vn,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

type LoadSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Bus  *int     `yaml:"bus"`
	P    *float64 `yaml:"p,omitempty"`
	Q    *float64 `yaml:"q,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

type LineSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Bus1 *int     `yaml:"bus1"`
	Bus2 *int     `yaml:"bus2"`
	R    *float64 `yaml:"r,omitempty"`
	X    *float64 `yaml:"x,omitempty"`
	B    *float64 `yaml:"b,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

type ShuntSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Bus  *int     `yaml:"bus"`
	G    *float64 `yaml:"g,omitempty"`
	B    *float64 `yaml:"b,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

type PVSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Bus  *int     `yaml:"bus"`
	P0   *float64 `yaml:"p0,omitempty"`
	V0   *float64 `yaml:"v0,omitempty"`
	Sn   *float64 `yaml:"sn,omitempty"`
	Vn   *float64 `yaml:"vn,omitempty"`
	Vmax *float64 `yaml:"vmax,omitempty"`
	Vmin *float64 `yaml:"vmin,omitempty"`
	Qmax *float64 `yaml:"qmax,omitempty"`
	Qmin *float64 `yaml:"qmin,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

type SlackSpec struct {
	Idx  int      `yaml:"idx"`
	Name string   `yaml:"name,omitempty"`
	Bus  *int     `yaml:"bus"`
	V0   *float64 `yaml:"v0,omitempty"`
	A0   *float64 `yaml:"a0,omitempty"`
	Sn   *float64 `yaml:"sn,omitempty"`
	Vn   *float64 `yaml:"vn,omitempty"`
	Vmax *float64 `yaml:"vmax,omitempty"`
	Vmin *float64 `yaml:"vmin,omitempty"`
	Qmax *float64 `yaml:"qmax,omitempty"`
	Qmin *float64 `yaml:"qmin,omitempty"`
	U    *float64 `yaml:"u,omitempty"`
}

// Parse parses a case from YAML bytes.
func Parse(data []byte) (*Case, error) {
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("casefile: parsing YAML: %v", err)
	}
	if len(c.Buses) == 0 {
		return nil, fmt.Errorf("casefile: case %q has no buses", c.Name)
	}
	return &c, nil
}

// Load parses a case from a file.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("casefile: reading %s: %v", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Apply stores every element of the case on the system's device classes,
// buses first so the connecting devices can reference them.
func (c *Case) Apply(sys *system.System) error {
	for _, b := range c.Buses {
		params := map[string]any{}
		setF(params, "Vn", b.Vn)
		setF(params, "u", b.U)
		if _, err := sys.Bus.AddElement(b.Idx, elemName("Bus", b.Name, b.Idx), params); err != nil {
			return err
		}
	}
	for _, l := range c.Loads {
		if l.Bus == nil {
			return fmt.Errorf("casefile: load %d: bus is required", l.Idx)
		}
		params := map[string]any{"bus": *l.Bus}
		setF(params, "p", l.P)
		setF(params, "q", l.Q)
		setF(params, "u", l.U)
		if _, err := sys.PQ.AddElement(l.Idx, elemName("PQ", l.Name, l.Idx), params); err != nil {
			return err
		}
	}
	for _, l := range c.Lines {
		if l.Bus1 == nil || l.Bus2 == nil {
			return fmt.Errorf("casefile: line %d: bus1 and bus2 are required", l.Idx)
		}
		params := map[string]any{"bus1": *l.Bus1, "bus2": *l.Bus2}
		setF(params, "r", l.R)
		setF(params, "x", l.X)
		setF(params, "b", l.B)
		setF(params, "u", l.U)
		if _, err := sys.Line.AddElement(l.Idx, elemName("Line", l.Name, l.Idx), params); err != nil {
			return err
		}
	}
	for _, s := range c.Shunts {
		if s.Bus == nil {
			return fmt.Errorf("casefile: shunt %d: bus is required", s.Idx)
		}
		params := map[string]any{"bus": *s.Bus}
		setF(params, "g", s.G)
		setF(params, "b", s.B)
		setF(params, "u", s.U)
		if _, err := sys.Shunt.AddElement(s.Idx, elemName("Shunt", s.Name, s.Idx), params); err != nil {
			return err
		}
	}
	for _, g := range c.PVs {
		if g.Bus == nil {
			return fmt.Errorf("casefile: pv generator %d: bus is required", g.Idx)
		}
		params := map[string]any{"bus": *g.Bus}
		setF(params, "p0", g.P0)
		setF(params, "v0", g.V0)
		setF(params, "Sn", g.Sn)
		setF(params, "Vn", g.Vn)
		setF(params, "vmax", g.Vmax)
		setF(params, "vmin", g.Vmin)
		setF(params, "qmax", g.Qmax)
		setF(params, "qmin", g.Qmin)
		setF(params, "u", g.U)
		if _, err := sys.PV.AddElement(g.Idx, elemName("PV", g.Name, g.Idx), params); err != nil {
			return err
		}
	}
	for _, g := range c.Slacks {
		if g.Bus == nil {
			return fmt.Errorf("casefile: slack generator %d: bus is required", g.Idx)
		}
		params := map[string]any{"bus": *g.Bus}
		setF(params, "v0", g.V0)
		setF(params, "a0", g.A0)
		setF(params, "Sn", g.Sn)
		setF(params, "Vn", g.Vn)
		setF(params, "vmax", g.Vmax)
		setF(params, "vmin", g.Vmin)
		setF(params, "qmax", g.Qmax)
		setF(params, "qmin", g.Qmin)
		setF(params, "u", g.U)
		if _, err := sys.Slack.AddElement(g.Idx, elemName("Slack", g.Name, g.Idx), params); err != nil {
			return err
		}
	}
	return nil
}

// BuildSystem loads a case and returns the assembled, unsolved system.
func BuildSystem(path string) (*system.System, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	name := c.Name
	if name == "" {
		name = "case"
	}
	sys := system.New(name)
	if err := c.Apply(sys); err != nil {
		return nil, err
	}
	if err := sys.Setup(); err != nil {
		return nil, err
	}
	return sys, nil
}

func setF(params map[string]any, key string, v *float64) {
	if v != nil {
		params[key] = *v
	}
}

func elemName(class, name string, idx int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", class, idx)
}
