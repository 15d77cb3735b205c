package sexy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeList:
		return "list"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node is one datum. Atoms keep their text; lists keep their items.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList

	// Line is the 1-based line the datum starts on.
	Line int
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		return strconv.Quote(n.Text)
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// IsSymbol reports whether n is the symbol name.
func (n *Node) IsSymbol(name string) bool {
	return n.Type == NodeSymbol && n.Text == name
}

// Head returns the symbol a list starts with, or "".
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// Int parses an integer node.
func (n *Node) Int() (int64, error) {
	if n.Type != NodeInteger {
		return 0, fmt.Errorf("line %d: expected integer but got %s", n.Line, n.Type)
	}
	return strconv.ParseInt(n.Text, 10, 64)
}

// Parse parses input holding exactly one datum.
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected exactly one datum but got %d", len(nodes))
	}
	return nodes[0], nil
}

// ParseAll parses every top-level datum in input.
func ParseAll(input string) ([]*Node, error) {
	p := &parser{lexer: newLexer(input)}
	if err := p.next(); err != nil {
		return nil, err
	}

	var nodes []*Node
	for p.tok.Type != tokenEOF {
		n, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

type parser struct {
	lexer *lexer
	tok   token
}

func (p *parser) next() error {
	tok, err := p.lexer.nextToken()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.tok
	switch tok.Type {
	case tokenSymbol:
		return &Node{Type: NodeSymbol, Text: tok.Value, Line: tok.Line}, p.next()
	case tokenString:
		return &Node{Type: NodeString, Text: tok.Value, Line: tok.Line}, p.next()
	case tokenInteger:
		return &Node{Type: NodeInteger, Text: tok.Value, Line: tok.Line}, p.next()
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("line %d: unexpected %s", tok.Line, tok.Type)
	}
}

func (p *parser) parseList() (*Node, error) {
	list := &Node{Type: NodeList, Line: p.tok.Line}
	if err := p.next(); err != nil { // consume '('
		return nil, err
	}

	for p.tok.Type != tokenRParen {
		if p.tok.Type == tokenEOF {
			return nil, fmt.Errorf("line %d: unterminated list", list.Line)
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
	return list, p.next() // consume ')'
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
	Line  int
}

type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *lexer) advance() byte {
	c := l.input[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		c := l.peek()
		switch {
		case c == ';':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(rune(c)):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) nextToken() (token, error) {
	l.skipSpaceAndComments()
	line := l.line

	if l.pos >= len(l.input) {
		return token{Type: tokenEOF, Line: line}, nil
	}

	c := l.peek()
	switch {
	case c == '(':
		l.advance()
		return token{Type: tokenLParen, Value: "(", Line: line}, nil
	case c == ')':
		l.advance()
		return token{Type: tokenRParen, Value: ")", Line: line}, nil
	case c == '"':
		s, err := l.readString()
		if err != nil {
			return token{}, fmt.Errorf("line %d: %w", line, err)
		}
		return token{Type: tokenString, Value: s, Line: line}, nil
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peekAt(1))):
		start := l.pos
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
		return token{Type: tokenInteger, Value: l.input[start:l.pos], Line: line}, nil
	case isSymbolChar(c):
		start := l.pos
		for isSymbolChar(l.peek()) {
			l.advance()
		}
		return token{Type: tokenSymbol, Value: l.input[start:l.pos], Line: line}, nil
	default:
		return token{}, fmt.Errorf("line %d: unexpected character '%c'", line, c)
	}
}

func (l *lexer) readString() (string, error) {
	var sb strings.Builder
	l.advance() // opening quote

	for {
		if l.pos >= len(l.input) {
			return "", fmt.Errorf("unterminated string")
		}
		c := l.advance()
		if c == '"' {
			return sb.String(), nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if l.pos >= len(l.input) {
			return "", fmt.Errorf("unterminated string")
		}
		switch esc := l.advance(); esc {
		case '"', '\\':
			sb.WriteByte(esc)
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '0':
			sb.WriteByte(0)
		case 'x':
			if l.pos+2 > len(l.input) {
				return "", fmt.Errorf("truncated \\x escape")
			}
			b, err := strconv.ParseUint(l.input[l.pos:l.pos+2], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid \\x escape %q", l.input[l.pos:l.pos+2])
			}
			l.advance()
			l.advance()
			sb.WriteByte(byte(b))
		default:
			return "", fmt.Errorf("invalid escape sequence: \\%c", esc)
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSymbolChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) ||
		c == '-' || c == '_' || c == '.' || c == '%' || c == '+' || c == '*'
}
