package regmap

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// Kind tells registers, groups and reserved blocks apart.
type Kind uint8

const (
	KindRegister Kind = iota
	KindGroup
	KindReserved
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindGroup:
		return "group"
	case KindReserved:
		return "reserved"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Entry is a resolved node of a Map. Offset is absolute, i.e. the sum of
// the node's own offset and the base offsets of all of its ancestors.
type Entry struct {
	Path        string
	Name        string
	Kind        Kind
	Offset      uint64
	Size        uint64
	Width       Width
	Mode        Mode
	Description string
}

// End returns the first offset past the entry.
func (e Entry) End() uint64 {
	return e.Offset + e.Size
}

type node struct {
	Entry
	groups    []Entry
	registers []Entry
}

// Map is an immutable, indexed register map built from a Group tree.
// It is safe for concurrent use.
type Map struct {
	tree     *Group
	index    map[string]*node
	all      []Entry
	byOffset []Entry
}

// Build validates root and freezes a copy of it into a Map.
func Build(root *Group) (*Map, error) {
	if root == nil {
		return nil, errors.New("register map: nil root group")
	}
	if !validName(root.name) {
		return nil, configError(root.name, "%w: %q", ErrInvalidName, root.name)
	}
	if err := root.validate(); err != nil {
		return nil, err
	}
	if root.offset > math.MaxUint64-root.Extent() {
		return nil, configError(root.name, "%w: 0x%X + 0x%X overflows", ErrOutOfBounds, root.offset, root.Extent())
	}

	m := &Map{tree: root.clone(), index: make(map[string]*node)}
	m.add(m.tree, "", 0)

	for _, e := range m.all {
		if e.Kind == KindRegister {
			m.byOffset = append(m.byOffset, e)
		}
	}
	sort.SliceStable(m.byOffset, func(i, j int) bool {
		return m.byOffset[i].Offset < m.byOffset[j].Offset
	})
	return m, nil
}

// MustBuild is like Build but panics on an invalid definition. It is meant
// for maps defined in code.
func MustBuild(root *Group) *Map {
	m, err := Build(root)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Map) add(g *Group, path string, parentBase uint64) *node {
	base := parentBase + g.offset
	n := &node{Entry: Entry{
		Path:        path,
		Name:        g.name,
		Kind:        KindGroup,
		Offset:      base,
		Size:        g.Extent(),
		Description: g.description,
	}}
	m.index[path] = n
	if path != "" {
		m.all = append(m.all, n.Entry)
	}

	for _, r := range g.registers {
		e := Entry{
			Path:        JoinPath(path, r.Name),
			Name:        r.Name,
			Kind:        KindRegister,
			Offset:      base + r.Offset,
			Size:        r.extent(),
			Width:       r.Width,
			Mode:        r.Mode,
			Description: r.Description,
		}
		n.registers = append(n.registers, e)
		m.index[e.Path] = &node{Entry: e}
		m.all = append(m.all, e)
	}
	for _, b := range g.reserved {
		e := Entry{
			Path:        JoinPath(path, b.Name),
			Name:        b.Name,
			Kind:        KindReserved,
			Offset:      base + b.Offset,
			Size:        b.Size,
			Description: b.Description,
		}
		m.index[e.Path] = &node{Entry: e}
		m.all = append(m.all, e)
	}
	for _, c := range g.groups {
		child := m.add(c, JoinPath(path, c.name), base)
		n.groups = append(n.groups, child.Entry)
	}
	return n
}

// Name returns the name of the root group.
func (m *Map) Name() string { return m.tree.name }

// Description returns the description of the root group.
func (m *Map) Description() string { return m.tree.description }

// Tree returns a copy of the group tree the map was built from.
func (m *Map) Tree() *Group { return m.tree.clone() }

func (m *Map) lookup(path string) (*node, error) {
	parts := SplitPath(path)
	if len(parts) > 0 && parts[0] == m.tree.name {
		if _, shadowed := m.index[parts[0]]; !shadowed {
			parts = parts[1:]
		}
	}
	n, ok := m.index[JoinPath(parts...)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return n, nil
}

// Resolve returns the entry named by path. The root group's name may be
// given as the first path element; an empty path names the root.
func (m *Map) Resolve(path string) (Entry, error) {
	n, err := m.lookup(path)
	if err != nil {
		return Entry{}, err
	}
	return n.Entry, nil
}

// Enumerate lists the registers of the group named by path in declaration
// order. Every call returns a fresh slice.
func (m *Map) Enumerate(path string) ([]Entry, error) {
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindGroup {
		return nil, fmt.Errorf("%w: %q", ErrNotGroup, path)
	}
	return slices.Clone(n.registers), nil
}

// Groups lists the child groups of the group named by path in declaration
// order.
func (m *Map) Groups(path string) ([]Entry, error) {
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindGroup {
		return nil, fmt.Errorf("%w: %q", ErrNotGroup, path)
	}
	return slices.Clone(n.groups), nil
}

// Entries returns all groups, registers and reserved blocks below the
// root, depth first.
func (m *Map) Entries() []Entry {
	return slices.Clone(m.all)
}

// Registers returns every register of the map, depth first.
func (m *Map) Registers() []Entry {
	var out []Entry
	for _, e := range m.all {
		if e.Kind == KindRegister {
			out = append(out, e)
		}
	}
	return out
}

// At returns the register covering the absolute offset.
func (m *Map) At(offset uint64) (Entry, bool) {
	i := sort.Search(len(m.byOffset), func(i int) bool {
		return m.byOffset[i].Offset > offset
	})
	if i == 0 {
		return Entry{}, false
	}
	e := m.byOffset[i-1]
	if offset >= e.End() {
		return Entry{}, false
	}
	return e, true
}

// Table returns the absolute offset of every register keyed by path.
func (m *Map) Table() map[string]uint64 {
	t := make(map[string]uint64, len(m.byOffset))
	for _, e := range m.byOffset {
		t[e.Path] = e.Offset
	}
	return t
}

// VerifyTable resolves every path of t and compares the offset. All
// mismatches are reported.
func (m *Map) VerifyTable(t map[string]uint64) error {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var errs []error
	for _, p := range paths {
		e, err := m.Resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if e.Offset != t[p] {
			errs = append(errs, fmt.Errorf("%s: table offset 0x%X, map offset 0x%X", p, t[p], e.Offset))
		}
	}
	return errors.Join(errs...)
}
