// Package system composes device classes into one power network and
// drives the assembly pipeline through to a solved operating point.
package system

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/device"
	"github.com/edp1096/toy-powerflow/pkg/solver"
)

// System holds the device registry and the global DAE. Registration
// order is fixed at construction and determines the address layout.
type System struct {
	name string
	log  *slog.Logger

	Bus   *device.Bus
	PQ    *device.PQ
	Line  *device.Line
	Shunt *device.Shunt
	PV    *device.PV
	Slack *device.Slack

	devices []device.Device
	byName  map[string]device.Device

	dae   *dae.DAE
	res   *dae.Residual
	ready bool
}

func New(name string) *System {
	s := &System{
		name:   name,
		log:    slog.Default().With("system", name),
		Bus:    device.NewBus(),
		PQ:     device.NewPQ(),
		Line:   device.NewLine(),
		Shunt:  device.NewShunt(),
		PV:     device.NewPV(),
		Slack:  device.NewSlack(),
		byName: make(map[string]device.Device),
		dae:    dae.New(),
	}
	for _, d := range []device.Device{s.Bus, s.PQ, s.Line, s.Shunt, s.PV, s.Slack} {
		s.devices = append(s.devices, d)
		s.byName[d.ClassName()] = d
	}
	return s
}

func (s *System) Name() string { return s.name }

// DAE exposes the global equation container.
func (s *System) DAE() *dae.DAE { return s.dae }

// Residual returns the compiled residual, nil before Setup.
func (s *System) Residual() *dae.Residual { return s.res }

// DeviceByName implements device.Registry.
func (s *System) DeviceByName(name string) (device.Device, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Register appends a custom device class after the built-in catalog. It
// must run before Setup.
func (s *System) Register(d device.Device) error {
	if s.ready {
		return fmt.Errorf("%s: %w: register after setup", s.name, device.ErrOrderingViolation)
	}
	if _, dup := s.byName[d.ClassName()]; dup {
		return fmt.Errorf("%s: device class %q already registered", s.name, d.ClassName())
	}
	s.devices = append(s.devices, d)
	s.byName[d.ClassName()] = d
	return nil
}

// AddElement stores one element on the named device class.
func (s *System) AddElement(deviceClass string, idx int, name string, params map[string]any) (int, error) {
	d, ok := s.byName[deviceClass]
	if !ok {
		return 0, fmt.Errorf("%s: %w: %q", s.name, device.ErrUnknownDevice, deviceClass)
	}
	return d.AddElement(idx, name, params)
}

// Setup runs the assembly pipeline over all devices in registration
// order: metadata checks, symbol declaration, address allocation, import
// resolution, parameter and variable computation, equation
// materialization and collection, initial values, and finally residual
// compilation. Any stage error aborts the run.
func (s *System) Setup() error {
	if s.ready {
		return fmt.Errorf("%s: %w: setup already ran", s.name, device.ErrOrderingViolation)
	}

	for _, d := range s.devices {
		if err := d.Check(); err != nil {
			return fmt.Errorf("%s: metadata check: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.DeclareSymbols(); err != nil {
			return fmt.Errorf("%s: declaring symbols: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.AllocateAddresses(s.dae); err != nil {
			return fmt.Errorf("%s: allocating addresses: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.ResolveImports(s); err != nil {
			return fmt.Errorf("%s: resolving imports: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.ComputeParameters(); err != nil {
			return fmt.Errorf("%s: computing parameters: %w", s.name, err)
		}
		if err := d.ComputeCustom(); err != nil {
			return fmt.Errorf("%s: computing parameters: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.ComputeVariables(); err != nil {
			return fmt.Errorf("%s: computing variables: %w", s.name, err)
		}
		if err := d.ComputeVariablesCustom(); err != nil {
			return fmt.Errorf("%s: computing variables: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.MaterializeEquations(); err != nil {
			return fmt.Errorf("%s: materializing equations: %w", s.name, err)
		}
	}

	s.dae.InitEmpty()
	for _, d := range s.devices {
		if err := d.CollectInternalEquations(s.dae); err != nil {
			return fmt.Errorf("%s: collecting internal equations: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.CollectExternalEquations(s.dae); err != nil {
			return fmt.Errorf("%s: collecting external equations: %w", s.name, err)
		}
	}
	for _, d := range s.devices {
		if err := d.SetInitialValues(s.dae); err != nil {
			return fmt.Errorf("%s: setting initial values: %w", s.name, err)
		}
	}

	res, err := s.dae.Compile()
	if err != nil {
		return fmt.Errorf("%s: compiling residual: %w", s.name, err)
	}
	s.res = res
	s.ready = true
	s.log.Info("system assembled", "states", s.dae.StateCount(), "algebs", s.dae.AlgebCount())
	return nil
}

// Solve runs the Newton iteration from the flat start and returns the
// solved operating point.
func (s *System) Solve(opt solver.Options) (*Solution, error) {
	if !s.ready {
		return nil, fmt.Errorf("%s: %w: setup must run before solve", s.name, device.ErrOrderingViolation)
	}
	x := s.dae.XInit()
	y := s.dae.YInit()
	stats, err := solver.SolveAlgeb(s.res, x, y, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	s.log.Info("power flow converged", "iterations", stats.Iterations, "residual", stats.Residual)
	return &Solution{X: x, Y: y, Stats: stats, dae: s.dae}, nil
}

// Solution is a solved operating point, sliced by device and variable
// through the address table.
type Solution struct {
	X     []float64
	Y     []float64
	Stats solver.Stats

	dae *dae.DAE
}

// Get returns the values of one device variable in element row order.
func (sol *Solution) Get(deviceClass, varName string) ([]float64, error) {
	addrs, kind, ok := sol.dae.Address(deviceClass, varName)
	if !ok {
		return nil, fmt.Errorf("no variable %s.%s", deviceClass, varName)
	}
	src := sol.Y
	if kind == dae.State {
		src = sol.X
	}
	out := make([]float64, len(addrs))
	for i, a := range addrs {
		out[i] = src[a]
	}
	return out, nil
}
