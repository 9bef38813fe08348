package mapfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// MapDecl is a complete map file.
// Example: map Fpga "Device Memory Mapping" { ... }
type MapDecl struct {
	Pos lexer.Position

	Name        string  `"map" @Ident`
	Offset      *Number `( "@" @Number )?`
	Description string  `@String?`
	Items       []*Item `"{" @@* "}"`
}

// Item is one declaration inside a map or group body.
type Item struct {
	Reserve  *ReserveDecl  `  @@`
	Group    *GroupDecl    `| @@`
	Register *RegisterDecl `| @@`
}

// ReserveDecl reserves an opaque block.
// Example: reserve Core @ 0x0 size 0x40000
type ReserveDecl struct {
	Pos lexer.Position

	Name        string `"reserve" @Ident`
	Offset      Number `"@" @Number`
	Size        Number `"size" @Number`
	Description string `@String?`
}

// GroupDecl declares a nested group.
// Example: group Registers @ 0x80000 size 0x40000 { ... }
type GroupDecl struct {
	Pos lexer.Position

	Name        string  `"group" @Ident`
	Offset      Number  `"@" @Number`
	Size        *Number `( "size" @Number )?`
	Description string  `@String?`
	Items       []*Item `"{" @@* "}"`
}

// RegisterDecl declares a register.
// Example: register Relay_1 @ 0x00 rw "relay 1 control"
type RegisterDecl struct {
	Pos lexer.Position

	Name        string  `"register" @Ident`
	Offset      Number  `"@" @Number`
	Mode        string  `@Ident`
	Width       *Number `( "width" @Number )?`
	Description string  `@String?`
}

// Number is a decimal or 0x-prefixed hexadecimal literal.
type Number uint64

func (n *Number) Capture(values []string) error {
	v, err := parseNumber(values[0])
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", values[0], err)
	}
	*n = Number(v)
	return nil
}

// parseNumber reads decimal or 0x-prefixed hexadecimal digits; underscores
// are ignored and leading zeros never switch to octal.
func parseNumber(s string) (uint64, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	return strconv.ParseUint(strings.ReplaceAll(s, "_", ""), base, 64)
}
