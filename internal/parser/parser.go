// Package parser turns console input into syntax trees.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/itsmostafa/phunkie/internal/ast"
	"github.com/itsmostafa/phunkie/internal/replerr"
)

var missingSemicolon = regexp.MustCompile(`([^;\s])\s*}`)

// Parse parses one console fragment. Input that fails as-is is retried
// with semicolons inserted before closing braces, then with a trailing
// semicolon, so that bare expressions like `1 + 1` are accepted.
func Parse(input string) ([]ast.Stmt, error) {
	if stmts, err := ParseProgram(input); err == nil {
		return stmts, nil
	}
	if stmts, err := ParseProgram(missingSemicolon.ReplaceAllString(input, "$1; }")); err == nil {
		return stmts, nil
	}
	stmts, err := ParseProgram(input + ";")
	if err != nil {
		return nil, &replerr.ParseError{Input: input, Reason: err.Error()}
	}
	return stmts, nil
}

// ParseProgram parses src as a sequence of statements without any retry
func ParseProgram(src string) (stmts []ast.Stmt, err error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*syntaxError)
			if !ok {
				panic(r)
			}
			stmts, err = nil, se
		}
	}()
	for p.peek().Type != EOF {
		stmts = append(stmts, p.parseStatement())
	}
	return stmts, nil
}

// ParseExpr parses a single expression such as the argument of :type
func ParseExpr(src string) (expr ast.Expr, err error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*syntaxError)
			if !ok {
				panic(r)
			}
			expr, err = nil, se
		}
	}()
	expr = p.parseExpr(0)
	p.acceptOp(";")
	if p.peek().Type != EOF {
		p.unexpected()
	}
	return expr, nil
}

type syntaxError struct {
	msg  string
	line int
}

func (e *syntaxError) Error() string { return fmt.Sprintf("%s on line %d", e.msg, e.line) }

type parser struct {
	toks []Token
	pos  int
	// yields counts yield expressions in the function body being parsed
	yields int
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekN(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Type != EOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(v string) bool {
	t := p.peek()
	return t.Type == Op && t.Value == v
}

func (p *parser) isOpAt(n int, v string) bool {
	t := p.peekN(n)
	return t.Type == Op && t.Value == v
}

func (p *parser) acceptOp(v string) bool {
	if p.isOp(v) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectOp(v string) Token {
	if !p.isOp(v) {
		p.failExpecting(`"` + v + `"`)
	}
	return p.next()
}

func (p *parser) isKeyword(kw string) bool {
	return p.isKeywordAt(0, kw)
}

func (p *parser) isKeywordAt(n int, kw string) bool {
	t := p.peekN(n)
	return t.Type == Ident && strings.EqualFold(t.Value, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) {
	if !p.acceptKeyword(kw) {
		p.failExpecting(`"` + kw + `"`)
	}
}

// expectIdent accepts any identifier, keywords included
func (p *parser) expectIdent() string {
	t := p.peek()
	if t.Type != Ident {
		p.failExpecting("identifier")
	}
	p.next()
	return t.Value
}

func (p *parser) expectVariable() string {
	t := p.peek()
	if t.Type != Variable {
		p.failExpecting("variable")
	}
	p.next()
	return t.Value
}

func (p *parser) fail(format string, args ...any) {
	panic(&syntaxError{msg: fmt.Sprintf(format, args...), line: p.peek().Line})
}

func (p *parser) unexpected() {
	p.fail("Syntax error, unexpected %s", p.peek().describe())
}

func (p *parser) failExpecting(what string) {
	p.fail("Syntax error, unexpected %s, expecting %s", p.peek().describe(), what)
}

// endStatement consumes the terminating semicolon
func (p *parser) endStatement() {
	p.expectOp(";")
}

// ---------------------------------------------------------------------------
// statements
// ---------------------------------------------------------------------------

func (p *parser) parseBlockOrStatement() []ast.Stmt {
	if p.isOp("{") {
		return p.parseBlock()
	}
	return []ast.Stmt{p.parseStatement()}
}

func (p *parser) parseBlock() []ast.Stmt {
	p.expectOp("{")
	stmts := []ast.Stmt{}
	for !p.isOp("}") {
		if p.peek().Type == EOF {
			p.failExpecting(`"}"`)
		}
		stmts = append(stmts, p.parseStatement())
	}
	p.next()
	return stmts
}

func (p *parser) parseStatement() ast.Stmt {
	t := p.peek()
	if t.Type == Op {
		switch t.Value {
		case ";":
			p.next()
			return &ast.Nop{}
		case "{":
			return &ast.Block{Stmts: p.parseBlock()}
		}
	}
	if t.Type != Ident || p.isOpAt(1, "::") || p.isOpAt(1, "(") && !isControlWord(t.Value) {
		return p.parseExprStatement()
	}

	switch strings.ToLower(t.Value) {
	case "echo":
		p.next()
		exprs := []ast.Expr{p.parseExpr(0)}
		for p.acceptOp(",") {
			exprs = append(exprs, p.parseExpr(0))
		}
		p.endStatement()
		return &ast.Echo{Exprs: exprs}
	case "if":
		return p.parseIf()
	case "while":
		p.next()
		p.expectOp("(")
		cond := p.parseExpr(0)
		p.expectOp(")")
		return &ast.While{Cond: cond, Body: p.parseBlockOrStatement()}
	case "do":
		p.next()
		body := p.parseBlockOrStatement()
		p.expectKeyword("while")
		p.expectOp("(")
		cond := p.parseExpr(0)
		p.expectOp(")")
		p.endStatement()
		return &ast.DoWhile{Body: body, Cond: cond}
	case "for":
		return p.parseFor()
	case "foreach":
		return p.parseForeach()
	case "switch":
		return p.parseSwitch()
	case "break", "continue":
		p.next()
		depth := 1
		if p.peek().Type == IntLit {
			n, _ := strconv.Atoi(p.next().Value)
			depth = n
		}
		p.endStatement()
		if strings.EqualFold(t.Value, "break") {
			return &ast.Break{Depth: depth}
		}
		return &ast.Continue{Depth: depth}
	case "return":
		p.next()
		var expr ast.Expr
		if !p.isOp(";") && p.peek().Type != EOF {
			expr = p.parseExpr(0)
		}
		p.endStatement()
		return &ast.Return{Expr: expr}
	case "function":
		if p.peekN(1).Type == Ident || (p.isOpAt(1, "&") && p.peekN(2).Type == Ident) {
			return p.parseFunctionDecl()
		}
	case "abstract", "final", "readonly", "class":
		if decl := p.tryClassDecl(); decl != nil {
			return decl
		}
	case "interface":
		if p.peekN(1).Type == Ident {
			return p.parseInterfaceDecl()
		}
	case "trait":
		if p.peekN(1).Type == Ident {
			return p.parseTraitDecl()
		}
	case "enum":
		if p.peekN(1).Type == Ident && !p.isOpAt(1, "(") {
			return p.parseEnumDecl()
		}
	case "namespace":
		if !p.isOpAt(1, `\`) {
			return p.parseNamespace()
		}
	case "use":
		return p.parseUse()
	case "try":
		return p.parseTry()
	case "unset":
		p.next()
		p.expectOp("(")
		vars := p.parseExprList(")")
		p.expectOp(")")
		p.endStatement()
		return &ast.Unset{Vars: vars}
	case "const":
		p.next()
		items := []ast.ConstItem{p.parseConstItem()}
		for p.acceptOp(",") {
			items = append(items, p.parseConstItem())
		}
		p.endStatement()
		return &ast.ConstDecl{Consts: items}
	case "declare":
		p.next()
		p.expectOp("(")
		for !p.isOp(")") && p.peek().Type != EOF {
			p.next()
		}
		p.expectOp(")")
		p.acceptOp(";")
		return &ast.Nop{}
	}
	return p.parseExprStatement()
}

func isControlWord(w string) bool {
	switch strings.ToLower(w) {
	case "if", "while", "for", "foreach", "switch", "echo", "return", "unset", "declare", "elseif":
		return true
	}
	return false
}

func (p *parser) parseExprStatement() ast.Stmt {
	expr := p.parseExpr(0)
	p.endStatement()
	return &ast.ExprStmt{Expr: expr}
}

func (p *parser) parseConstItem() ast.ConstItem {
	name := p.expectIdent()
	p.expectOp("=")
	return ast.ConstItem{Name: name, Value: p.parseExpr(0)}
}

func (p *parser) parseIf() ast.Stmt {
	p.expectKeyword("if")
	p.expectOp("(")
	cond := p.parseExpr(0)
	p.expectOp(")")
	stmt := &ast.If{Cond: cond, Then: p.parseBlockOrStatement()}
	for {
		switch {
		case p.isKeyword("elseif"):
			p.next()
		case p.isKeyword("else") && p.isKeywordAt(1, "if"):
			p.next()
			p.next()
		case p.isKeyword("else"):
			p.next()
			stmt.Else = p.parseBlockOrStatement()
			stmt.HasElse = true
			return stmt
		default:
			return stmt
		}
		p.expectOp("(")
		c := p.parseExpr(0)
		p.expectOp(")")
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Cond: c, Body: p.parseBlockOrStatement()})
	}
}

func (p *parser) parseExprList(end string) []ast.Expr {
	exprs := []ast.Expr{}
	for !p.isOp(end) {
		exprs = append(exprs, p.parseExpr(0))
		if !p.acceptOp(",") {
			break
		}
	}
	return exprs
}

func (p *parser) parseFor() ast.Stmt {
	p.expectKeyword("for")
	p.expectOp("(")
	init := p.parseExprList(";")
	p.expectOp(";")
	cond := p.parseExprList(";")
	p.expectOp(";")
	loop := p.parseExprList(")")
	p.expectOp(")")
	return &ast.For{Init: init, Cond: cond, Loop: loop, Body: p.parseBlockOrStatement()}
}

func (p *parser) parseForeach() ast.Stmt {
	p.expectKeyword("foreach")
	p.expectOp("(")
	subject := p.parseExpr(0)
	p.expectKeyword("as")
	stmt := &ast.Foreach{Subject: subject}

	target := func() ast.Expr {
		if p.acceptOp("&") {
			stmt.ByRef = true
		}
		return p.parseExpr(precTernary + 1)
	}
	first := target()
	if p.acceptOp("=>") {
		stmt.Key = first
		stmt.Value = target()
	} else {
		stmt.Value = first
	}
	stmt.Value = asListTarget(stmt.Value)
	p.expectOp(")")
	stmt.Body = p.parseBlockOrStatement()
	return stmt
}

func (p *parser) parseSwitch() ast.Stmt {
	p.expectKeyword("switch")
	p.expectOp("(")
	subject := p.parseExpr(0)
	p.expectOp(")")
	p.expectOp("{")
	stmt := &ast.Switch{Subject: subject}
	for !p.acceptOp("}") {
		var c ast.SwitchCase
		switch {
		case p.acceptKeyword("case"):
			c.Cond = p.parseExpr(0)
		case p.acceptKeyword("default"):
		default:
			p.failExpecting(`"case"`)
		}
		if !p.acceptOp(":") {
			p.expectOp(";")
		}
		for !p.isKeyword("case") && !p.isKeyword("default") && !p.isOp("}") {
			if p.peek().Type == EOF {
				p.failExpecting(`"}"`)
			}
			c.Body = append(c.Body, p.parseStatement())
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	return stmt
}

func (p *parser) parseTry() ast.Stmt {
	p.expectKeyword("try")
	stmt := &ast.Try{Body: p.parseBlock()}
	for p.acceptKeyword("catch") {
		p.expectOp("(")
		c := ast.Catch{Types: []string{p.expectIdent()}}
		for p.acceptOp("|") {
			c.Types = append(c.Types, p.expectIdent())
		}
		if p.peek().Type == Variable {
			c.Var = p.next().Value
		}
		p.expectOp(")")
		c.Body = p.parseBlock()
		stmt.Catches = append(stmt.Catches, c)
	}
	if p.acceptKeyword("finally") {
		stmt.Finally = p.parseBlock()
	}
	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.failExpecting(`"catch" or "finally"`)
	}
	return stmt
}

func (p *parser) parseNamespace() ast.Stmt {
	p.expectKeyword("namespace")
	stmt := &ast.Namespace{}
	if p.peek().Type == Ident {
		stmt.Name = p.next().Value
	}
	if p.isOp("{") {
		stmt.Braced = true
		stmt.Body = p.parseBlock()
		return stmt
	}
	p.endStatement()
	return stmt
}

func (p *parser) parseUse() ast.Stmt {
	p.expectKeyword("use")
	stmt := &ast.Use{}
	if p.isKeyword("function") || p.isKeyword("const") {
		stmt.Type = strings.ToLower(p.next().Value)
	}
	for {
		name := p.expectIdent()
		if p.isOp(`\`) && p.isOpAt(1, "{") {
			// group use: use A\{B, C as D}
			p.next()
			p.next()
			for !p.acceptOp("}") {
				item := ast.UseItem{Name: name + `\` + p.expectIdent()}
				if p.acceptKeyword("as") {
					item.Alias = p.expectIdent()
				}
				stmt.Items = append(stmt.Items, item)
				if !p.acceptOp(",") {
					p.expectOp("}")
					break
				}
			}
		} else {
			item := ast.UseItem{Name: name}
			if p.acceptKeyword("as") {
				item.Alias = p.expectIdent()
			}
			stmt.Items = append(stmt.Items, item)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	p.endStatement()
	return stmt
}

func (p *parser) parseFunctionDecl() ast.Stmt {
	p.expectKeyword("function")
	decl := &ast.FuncDecl{}
	decl.ByRef = p.acceptOp("&")
	decl.Name = p.expectIdent()
	decl.Params = p.parseParams()
	decl.ReturnType = p.parseReturnType()
	decl.Body, decl.Generator = p.parseFunctionBody()
	return decl
}

// parseFunctionBody parses a function body and reports whether it yields
func (p *parser) parseFunctionBody() ([]ast.Stmt, bool) {
	outer := p.yields
	p.yields = 0
	body := p.parseBlock()
	generator := p.yields > 0
	p.yields = outer
	return body, generator
}

func (p *parser) parseReturnType() *ast.TypeExpr {
	if p.acceptOp(":") {
		return p.parseType()
	}
	return nil
}

func (p *parser) parseParams() []ast.Param {
	p.expectOp("(")
	params := []ast.Param{}
	for !p.isOp(")") {
		params = append(params, p.parseParam())
		if !p.acceptOp(",") {
			break
		}
	}
	p.expectOp(")")
	return params
}

func (p *parser) parseParam() ast.Param {
	var param ast.Param
	for {
		switch {
		case p.isKeyword("public"), p.isKeyword("protected"), p.isKeyword("private"):
			param.Promote = strings.ToLower(p.next().Value)
			continue
		case p.isKeyword("readonly"):
			p.next()
			param.Readonly = true
			if param.Promote == "" {
				param.Promote = "public"
			}
			continue
		}
		break
	}
	if p.peek().Type == Ident || p.isOp("?") || p.isOp("(") {
		param.Type = p.parseType()
	}
	if p.acceptOp("&") {
		param.ByRef = true
	}
	if p.acceptOp("...") {
		param.Variadic = true
	}
	param.Name = p.expectVariable()
	if p.acceptOp("=") {
		param.Default = p.parseExpr(0)
	}
	return param
}

// parseType reads nullable, union, intersection and DNF types
func (p *parser) parseType() *ast.TypeExpr {
	if p.acceptOp("?") {
		return &ast.TypeExpr{Name: p.expectIdent(), Nullable: true}
	}
	first := p.parseTypeAtom()
	if p.isOp("|") {
		union := []*ast.TypeExpr{first}
		for p.acceptOp("|") {
			union = append(union, p.parseTypeAtom())
		}
		return &ast.TypeExpr{Union: union}
	}
	return first
}

func (p *parser) parseTypeAtom() *ast.TypeExpr {
	if p.acceptOp("(") {
		t := p.parseIntersection(&ast.TypeExpr{Name: p.expectIdent()})
		p.expectOp(")")
		return t
	}
	return p.parseIntersection(&ast.TypeExpr{Name: p.expectIdent()})
}

func (p *parser) parseIntersection(first *ast.TypeExpr) *ast.TypeExpr {
	// a & followed by a variable or ... is a by-reference marker
	if !p.isOp("&") || p.peekN(1).Type != Ident {
		return first
	}
	parts := []*ast.TypeExpr{first}
	for p.isOp("&") && p.peekN(1).Type == Ident {
		p.next()
		parts = append(parts, &ast.TypeExpr{Name: p.expectIdent()})
	}
	return &ast.TypeExpr{Intersection: parts}
}

// ---------------------------------------------------------------------------
// class-like declarations
// ---------------------------------------------------------------------------

func (p *parser) tryClassDecl() ast.Stmt {
	i := 0
	for {
		t := p.peekN(i)
		if t.Type != Ident {
			return nil
		}
		switch strings.ToLower(t.Value) {
		case "abstract", "final", "readonly":
			i++
			continue
		case "class":
			if p.peekN(i+1).Type != Ident {
				if i == 0 && p.isOpAt(1, "{") {
					p.fail("Anonymous classes can only be instantiated with new class { ... }, not as standalone definitions")
				}
				return nil
			}
			return p.parseClassDecl()
		}
		return nil
	}
}

func (p *parser) parseClassDecl() *ast.ClassDecl {
	decl := &ast.ClassDecl{}
	for {
		switch {
		case p.acceptKeyword("abstract"):
			decl.Abstract = true
			continue
		case p.acceptKeyword("final"):
			decl.Final = true
			continue
		case p.acceptKeyword("readonly"):
			decl.Readonly = true
			continue
		}
		break
	}
	p.expectKeyword("class")
	decl.Name = p.expectIdent()
	p.parseClassHeader(decl)
	decl.Body = p.parseClassBody(decl.Readonly)
	return decl
}

func (p *parser) parseClassHeader(decl *ast.ClassDecl) {
	if p.acceptKeyword("extends") {
		decl.Extends = p.expectIdent()
	}
	if p.acceptKeyword("implements") {
		decl.Implements = p.parseNameList()
	}
}

func (p *parser) parseNameList() []string {
	names := []string{p.expectIdent()}
	for p.acceptOp(",") {
		names = append(names, p.expectIdent())
	}
	return names
}

func (p *parser) parseInterfaceDecl() ast.Stmt {
	p.expectKeyword("interface")
	decl := &ast.InterfaceDecl{Name: p.expectIdent()}
	if p.acceptKeyword("extends") {
		decl.Extends = p.parseNameList()
	}
	decl.Body = p.parseClassBody(false)
	return decl
}

func (p *parser) parseTraitDecl() ast.Stmt {
	p.expectKeyword("trait")
	decl := &ast.TraitDecl{Name: p.expectIdent()}
	decl.Body = p.parseClassBody(false)
	return decl
}

func (p *parser) parseEnumDecl() ast.Stmt {
	p.expectKeyword("enum")
	decl := &ast.EnumDecl{Name: p.expectIdent()}
	if p.acceptOp(":") {
		decl.BackingType = strings.ToLower(p.expectIdent())
	}
	if p.acceptKeyword("implements") {
		decl.Implements = p.parseNameList()
	}
	decl.Body = p.parseClassBody(false)
	return decl
}

func (p *parser) parseClassBody(readonlyClass bool) ast.ClassBody {
	var body ast.ClassBody
	p.expectOp("{")
	for !p.acceptOp("}") {
		if p.peek().Type == EOF {
			p.failExpecting(`"}"`)
		}
		p.parseMember(&body, readonlyClass)
	}
	return body
}

func (p *parser) parseMember(body *ast.ClassBody, readonlyClass bool) {
	if p.acceptKeyword("use") {
		body.TraitUses = append(body.TraitUses, p.parseNameList()...)
		if p.isOp("{") {
			p.fail("Trait conflict resolution blocks are not supported")
		}
		p.endStatement()
		return
	}
	if p.acceptKeyword("case") {
		c := ast.EnumCase{Name: p.expectIdent()}
		if p.acceptOp("=") {
			c.Value = p.parseExpr(0)
		}
		p.endStatement()
		body.Cases = append(body.Cases, c)
		return
	}

	var (
		visibility              string
		static, abstract, final bool
		readonly                = readonlyClass
	)
	for {
		switch {
		case p.isKeyword("public"), p.isKeyword("protected"), p.isKeyword("private"):
			visibility = strings.ToLower(p.next().Value)
			continue
		case p.acceptKeyword("static"):
			static = true
			continue
		case p.acceptKeyword("abstract"):
			abstract = true
			continue
		case p.acceptKeyword("final"):
			final = true
			continue
		case p.acceptKeyword("readonly"):
			readonly = true
			continue
		case p.acceptKeyword("var"):
			visibility = "public"
			continue
		}
		break
	}
	if visibility == "" {
		visibility = "public"
	}

	switch {
	case p.acceptKeyword("const"):
		// an optional type precedes the name when two identifiers follow
		if p.peek().Type == Ident && p.peekN(1).Type == Ident {
			p.next()
		}
		for {
			item := p.parseConstItem()
			body.Consts = append(body.Consts, ast.ClassConst{Name: item.Name, Value: item.Value, Visibility: visibility, Final: final})
			if !p.acceptOp(",") {
				break
			}
		}
		p.endStatement()
	case p.acceptKeyword("function"):
		m := ast.MethodDecl{Visibility: visibility, Static: static, Abstract: abstract, Final: final}
		m.ByRef = p.acceptOp("&")
		m.Name = p.expectIdent()
		m.Params = p.parseParams()
		m.ReturnType = p.parseReturnType()
		if p.isOp("{") {
			m.Body, m.Generator = p.parseFunctionBody()
		} else {
			p.endStatement()
		}
		body.Methods = append(body.Methods, m)
	default:
		var typ *ast.TypeExpr
		if p.peek().Type != Variable {
			typ = p.parseType()
		}
		for {
			prop := ast.PropDecl{Name: p.expectVariable(), Type: typ, Static: static, Readonly: readonly, Visibility: visibility}
			if p.acceptOp("=") {
				prop.Default = p.parseExpr(0)
			}
			body.Props = append(body.Props, prop)
			if !p.acceptOp(",") {
				break
			}
		}
		p.endStatement()
	}
}
