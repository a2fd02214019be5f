package registry

import (
	"fmt"
	"sync"
)

type namedMachine struct {
	name    string
	machine Machine
}

var (
	discoveryMu sync.RWMutex
	discovered  []namedMachine
)

// Register makes a machine available to every build that uses AddFromDiscovery.
// It is meant to be called from init functions, the way database/sql drivers register.
// Registering the same name twice panics.
func Register(name string, m Machine) {
	discoveryMu.Lock()
	defer discoveryMu.Unlock()

	if m == nil {
		panic("registry: Register machine is nil")
	}
	for _, nm := range discovered {
		if nm.name == name {
			panic("registry: Register called twice for machine " + name)
		}
	}
	discovered = append(discovered, namedMachine{name: name, machine: m})
}

// Discovered returns the names of globally registered machines, in registration order.
func Discovered() []string {
	discoveryMu.RLock()
	defer discoveryMu.RUnlock()

	names := make([]string, len(discovered))
	for i, nm := range discovered {
		names[i] = nm.name
	}
	return names
}

func discoverySnapshot() []namedMachine {
	discoveryMu.RLock()
	defer discoveryMu.RUnlock()
	return append([]namedMachine(nil), discovered...)
}

// MachineSet is a mutable group of local machines scoped to a context name.
// The empty context name designates the process-wide set.
type MachineSet struct {
	name string

	mu       sync.RWMutex
	machines []Machine
}

var (
	localsMu sync.Mutex
	locals   = make(map[string]*MachineSet)
)

// LocalMachines returns the local machine set for contextName, creating it on first use.
func LocalMachines(contextName string) *MachineSet {
	localsMu.Lock()
	defer localsMu.Unlock()

	set, ok := locals[contextName]
	if !ok {
		set = &MachineSet{name: contextName}
		locals[contextName] = set
	}
	return set
}

// FindLocalMachines returns the set for contextName without creating it.
func FindLocalMachines(contextName string) (*MachineSet, bool) {
	localsMu.Lock()
	defer localsMu.Unlock()
	set, ok := locals[contextName]
	return set, ok
}

// ProcessMachines returns the process-wide local machine set.
func ProcessMachines() *MachineSet {
	return LocalMachines("")
}

// RemoveLocalMachines drops the set for contextName.
func RemoveLocalMachines(contextName string) {
	localsMu.Lock()
	defer localsMu.Unlock()
	delete(locals, contextName)
}

// Add appends a machine. Machines added later override earlier ones on duplicate names.
func (s *MachineSet) Add(m Machine) *MachineSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines = append(s.machines, m)
	return s
}

// Clear removes every machine from the set.
func (s *MachineSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines = nil
}

// Len returns the number of machines in the set.
func (s *MachineSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.machines)
}

func (s *MachineSet) label() string {
	if s.name == "" {
		return "local machines (process)"
	}
	return fmt.Sprintf("local machines (context %q)", s.name)
}

func (s *MachineSet) snapshot() []Machine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Machine(nil), s.machines...)
}
