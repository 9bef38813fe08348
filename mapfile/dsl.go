package mapfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rwirdemann/regmap"
)

var dslParser = participle.MustBuild[MapDecl](
	participle.Lexer(dslLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)

// ParseDSL parses a map file and builds the map it declares.
func ParseDSL(r io.Reader) (*regmap.Map, error) {
	return parseDSL("", r)
}

func ParseDSLString(input string) (*regmap.Map, error) {
	return parseDSL("", strings.NewReader(input))
}

func ParseDSLFile(filename string) (*regmap.Map, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return parseDSL(filename, file)
}

func parseDSL(filename string, r io.Reader) (*regmap.Map, error) {
	decl, err := dslParser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return decl.Build()
}

// Build builds the map declared by d. Definition errors are prefixed with
// the position of the offending declaration.
func (d *MapDecl) Build() (*regmap.Map, error) {
	var offset uint64
	if d.Offset != nil {
		offset = uint64(*d.Offset)
	}
	root := regmap.NewGroup(d.Name, offset).SetDescription(d.Description)
	if err := fillItems(root, d.Items); err != nil {
		return nil, err
	}
	m, err := regmap.Build(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Pos, err)
	}
	return m, nil
}

func fillItems(g *regmap.Group, items []*Item) error {
	for _, item := range items {
		switch {
		case item.Reserve != nil:
			r := item.Reserve
			err := g.AddBlock(regmap.Block{
				Name:        r.Name,
				Offset:      uint64(r.Offset),
				Size:        uint64(r.Size),
				Description: r.Description,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", r.Pos, err)
			}

		case item.Register != nil:
			r := item.Register
			reg := regmap.Register{
				Name:        r.Name,
				Offset:      uint64(r.Offset),
				Mode:        regmap.Mode(strings.ToUpper(r.Mode)),
				Description: r.Description,
			}
			if r.Width != nil {
				if *r.Width > 0xFF {
					return fmt.Errorf("%s: %w: %d", r.Pos, regmap.ErrInvalidWidth, *r.Width)
				}
				reg.Width = regmap.Width(*r.Width)
			}
			if err := g.Add(reg); err != nil {
				return fmt.Errorf("%s: %w", r.Pos, err)
			}

		case item.Group != nil:
			gd := item.Group
			child, err := g.Define(gd.Name, uint64(gd.Offset))
			if err != nil {
				return fmt.Errorf("%s: %w", gd.Pos, err)
			}
			child.SetDescription(gd.Description)
			if gd.Size != nil {
				child.SetSize(uint64(*gd.Size))
			}
			if err := fillItems(child, gd.Items); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatDSL writes m in the map file syntax accepted by ParseDSL.
func FormatDSL(w io.Writer, m *regmap.Map) error {
	bw := bufio.NewWriter(w)
	root := m.Tree()

	fmt.Fprintf(bw, "map %s", root.Name())
	if root.Offset() != 0 {
		fmt.Fprintf(bw, " @ 0x%X", root.Offset())
	}
	writeDescription(bw, root.Description())
	bw.WriteString(" {\n")
	formatBody(bw, root, 1)
	bw.WriteString("}\n")
	return bw.Flush()
}

func formatBody(w *bufio.Writer, g *regmap.Group, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, b := range g.Reserved() {
		fmt.Fprintf(w, "%sreserve %s @ 0x%X size 0x%X", indent, b.Name, b.Offset, b.Size)
		writeDescription(w, b.Description)
		w.WriteString("\n")
	}
	for _, r := range g.Registers() {
		fmt.Fprintf(w, "%sregister %s @ 0x%02X %s", indent, r.Name, r.Offset, strings.ToLower(string(r.Mode)))
		if r.Width != regmap.Width32 {
			fmt.Fprintf(w, " width %d", r.Width)
		}
		writeDescription(w, r.Description)
		w.WriteString("\n")
	}
	for _, c := range g.Groups() {
		fmt.Fprintf(w, "%sgroup %s @ 0x%X", indent, c.Name(), c.Offset())
		if c.Size() != 0 {
			fmt.Fprintf(w, " size 0x%X", c.Size())
		}
		writeDescription(w, c.Description())
		w.WriteString(" {\n")
		formatBody(w, c, depth+1)
		fmt.Fprintf(w, "%s}\n", indent)
	}
}

func writeDescription(w *bufio.Writer, d string) {
	if d != "" {
		w.WriteString(" " + strconv.Quote(d))
	}
}
