package main

import (
	"strconv"
	"strings"

	"github.com/strager/cbe/sexy"
)

// LoadIR replays the builder calls described by an IR file into ctx.
//
//	(global name (i32 123))
//	(const name (u8 "text"))
//	(func main
//	  (label entry)
//	  (add x (i32 50) (i32 100))
//	  (sub _ (i32 (local x)) (i32 (char "a"))))
//
// A destination of _ produces an unnamed value.
func LoadIR(ctx *Context, src string) error {
	forms, err := sexy.ParseAll(src)
	if err != nil {
		return errorf(CategoryInput, ErrMalformedIR, "%v", err)
	}

	for _, form := range forms {
		switch form.Head() {
		case "global", "const":
			if err := loadGlobal(ctx, form); err != nil {
				return err
			}
		case "func":
			if err := loadFunction(ctx, form); err != nil {
				return err
			}
		default:
			return malformed(form, "expected (global ...), (const ...) or (func ...) but got %s", form)
		}
	}
	return nil
}

func malformed(n *sexy.Node, format string, args ...any) error {
	return errorf(CategoryInput, ErrMalformedIR, "line %d: "+format, append([]any{n.Line}, args...)...)
}

func loadGlobal(ctx *Context, form *sexy.Node) error {
	if len(form.Items) != 3 || form.Items[1].Type != sexy.NodeSymbol {
		return malformed(form, "expected (%s <name> (<type> <value>))", form.Head())
	}
	tv, err := loadTypedValue(ctx, form.Items[2])
	if err != nil {
		return err
	}
	_, err = ctx.BuildGlobalVariable(form.Items[1].Text, form.Head() == "const", tv)
	return err
}

func loadFunction(ctx *Context, form *sexy.Node) error {
	if len(form.Items) < 2 || form.Items[1].Type != sexy.NodeSymbol {
		return malformed(form, "expected (func <name> <body>...)")
	}
	b, err := ctx.BuildFunction(form.Items[1].Text)
	if err != nil {
		return err
	}
	defer b.Finish()

	for _, stmt := range form.Items[2:] {
		head := stmt.Head()
		if head == "label" {
			if len(stmt.Items) != 2 || stmt.Items[1].Type != sexy.NodeSymbol {
				return malformed(stmt, "expected (label <name>)")
			}
			b.BuildLabel(stmt.Items[1].Text)
			continue
		}

		op, ok := ParseBinaryOp(head)
		if !ok {
			return malformed(stmt, "unknown instruction %s", stmt)
		}
		if len(stmt.Items) != 4 || stmt.Items[1].Type != sexy.NodeSymbol {
			return malformed(stmt, "expected (%s <dest> <lhs> <rhs>)", head)
		}
		dest := stmt.Items[1].Text
		if dest == "_" {
			dest = ""
		}
		lhs, err := loadTypedValue(ctx, stmt.Items[2])
		if err != nil {
			return err
		}
		rhs, err := loadTypedValue(ctx, stmt.Items[3])
		if err != nil {
			return err
		}
		b.BuildBinary(op, dest, lhs, rhs)
	}
	return nil
}

func loadTypedValue(ctx *Context, n *sexy.Node) (TypedValue, error) {
	if n.Type != sexy.NodeList || len(n.Items) != 2 {
		return TypedValue{}, malformed(n, "expected (<type> <value>) but got %s", n)
	}
	t, err := loadType(n.Items[0])
	if err != nil {
		return TypedValue{}, err
	}
	v, err := loadValue(ctx, n.Items[1])
	if err != nil {
		return TypedValue{}, err
	}
	return Typed(t, v), nil
}

// loadType accepts iN and uN.
func loadType(n *sexy.Node) (Type, error) {
	if n.Type != sexy.NodeSymbol || len(n.Text) < 2 {
		return nil, malformed(n, "expected a type like i32 or u8 but got %s", n)
	}
	bits, err := strconv.Atoi(n.Text[1:])
	if err != nil || bits <= 0 {
		return nil, malformed(n, "invalid type %s", n.Text)
	}
	switch n.Text[0] {
	case 'i':
		return Int(bits), nil
	case 'u':
		return UnsignedInt(bits), nil
	}
	return nil, malformed(n, "invalid type %s", n.Text)
}

func loadValue(ctx *Context, n *sexy.Node) (Value, error) {
	switch n.Type {
	case sexy.NodeInteger:
		v, err := n.Int()
		if err != nil {
			return nil, malformed(n, "invalid integer %s", n.Text)
		}
		return IntegerLiteral(v), nil
	case sexy.NodeString:
		return StringLiteral(n.Text), nil
	case sexy.NodeList:
		// handled below
	default:
		return nil, malformed(n, "unexpected %s", n)
	}

	if len(n.Items) != 2 {
		return nil, malformed(n, "expected (<kind> <arg>) but got %s", n)
	}
	arg := n.Items[1]
	switch n.Head() {
	case "char":
		switch {
		case arg.Type == sexy.NodeString && len(arg.Text) == 1:
			return CharLiteral(arg.Text[0]), nil
		case arg.Type == sexy.NodeInteger:
			v, err := arg.Int()
			if err != nil || v < 0 || v > 255 {
				return nil, malformed(arg, "character out of range: %s", arg.Text)
			}
			return CharLiteral(byte(v)), nil
		}
		return nil, malformed(arg, "expected a one-byte string or a byte value")
	case "float":
		text := arg.Text
		if arg.Type != sexy.NodeString && arg.Type != sexy.NodeInteger {
			return nil, malformed(arg, "expected a number")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, malformed(arg, "invalid float %q", text)
		}
		return FloatLiteral(f), nil
	case "local", "global":
		if arg.Type != sexy.NodeSymbol {
			return nil, malformed(arg, "expected a name")
		}
		if n.Head() == "local" {
			return ctx.Local(arg.Text), nil
		}
		return ctx.Global(arg.Text), nil
	}
	return nil, malformed(n, "unknown value kind %s", n)
}
