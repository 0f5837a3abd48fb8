package system

import (
	"fmt"
	"reflect"
	"time"
)

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: apply external commands
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: simulation logic
	PhasePostUpdate              // 3: apply this tick's events, spawn
	PhaseOutput                  // 4: reports, snapshots
	PhasePersist                 // 5: changelog flush
	PhaseCleanup                 // 6: destroy queued entities
	PhaseSync                    // 7: end-of-tick index reconciliation
)

var phaseNames = [...]string{"Input", "PreUpdate", "Update", "PostUpdate", "Output", "Persist", "Cleanup", "Sync"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Accessor is implemented by systems that declare what they touch. A system
// without it is treated as exclusive and never shares a batch.
type Accessor interface {
	Access() []Access
}

// Named systems show up under their own name in plans and logs.
type Named interface {
	Name() string
}

type ResourceKind uint8

const (
	KindComponent ResourceKind = iota
	KindIndex
)

// Resource is something two systems can conflict over: a component type's
// store, or the derived index over it.
type Resource struct {
	Kind ResourceKind
	Type reflect.Type
}

func ComponentOf(t reflect.Type) Resource { return Resource{Kind: KindComponent, Type: t} }
func IndexOf(t reflect.Type) Resource     { return Resource{Kind: KindIndex, Type: t} }

func (r Resource) String() string {
	if r.Kind == KindIndex {
		return "Index[" + r.Type.String() + "]"
	}
	return "Component[" + r.Type.String() + "]"
}

type Access struct {
	Resource Resource
	Write    bool
}

// Read declares read access to the store of T.
func Read[T any]() Access {
	return Access{Resource: ComponentOf(reflect.TypeOf((*T)(nil)).Elem())}
}

// Write declares write access to the store of T.
func Write[T any]() Access {
	return Access{Resource: ComponentOf(reflect.TypeOf((*T)(nil)).Elem()), Write: true}
}

func (a Access) String() string {
	if a.Write {
		return "W " + a.Resource.String()
	}
	return "R " + a.Resource.String()
}

// Unit is a system as the planner sees it.
type Unit struct {
	System    System
	Name      string
	Phase     Phase
	Access    []Access
	Exclusive bool
}

// NewUnit resolves a system's name and declared access.
func NewUnit(s System) Unit {
	u := Unit{System: s, Phase: s.Phase()}
	if n, ok := s.(Named); ok {
		u.Name = n.Name()
	} else {
		u.Name = fmt.Sprintf("%T", s)
	}
	if a, ok := s.(Accessor); ok {
		u.Access = a.Access()
	} else {
		u.Exclusive = true
	}
	return u
}

// Touches reports whether the unit declares access r, and whether it writes it.
func (u *Unit) Touches(r Resource) (touched, write bool) {
	for _, a := range u.Access {
		if a.Resource == r {
			touched = true
			write = write || a.Write
		}
	}
	return touched, write
}

func conflicts(a, b *Unit) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	for _, x := range a.Access {
		for _, y := range b.Access {
			if x.Resource == y.Resource && (x.Write || y.Write) {
				return true
			}
		}
	}
	return false
}
