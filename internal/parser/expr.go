package parser

import (
	"strconv"
	"strings"

	"github.com/itsmostafa/phunkie/internal/ast"
)

// binding powers, lowest first
const (
	precLowest = iota
	precOr
	precXor
	precAnd
	precAssign
	precTernary
	precCoalesce
	precBoolOr
	precBoolAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precCompare
	precConcat
	precShift
	precAdditive
	precMultiplicative
	precInstanceof
	precNot
	precUnary
	precPow
)

var binaryOps = map[string]struct {
	prec  int
	right bool
}{
	"??": {precCoalesce, true},
	"||": {precBoolOr, false},
	"&&": {precBoolAnd, false},
	"|":  {precBitOr, false},
	"^":  {precBitXor, false},
	"&":  {precBitAnd, false},
	"==": {precEquality, false}, "!=": {precEquality, false}, "<>": {precEquality, false},
	"===": {precEquality, false}, "!==": {precEquality, false}, "<=>": {precEquality, false},
	"<": {precCompare, false}, "<=": {precCompare, false}, ">": {precCompare, false}, ">=": {precCompare, false},
	".":  {precConcat, false},
	"<<": {precShift, false}, ">>": {precShift, false},
	"+": {precAdditive, false}, "-": {precAdditive, false},
	"*": {precMultiplicative, false}, "/": {precMultiplicative, false}, "%": {precMultiplicative, false},
	"**": {precPow, true},
}

var wordOps = map[string]int{
	"or":         precOr,
	"xor":        precXor,
	"and":        precAnd,
	"instanceof": precInstanceof,
}

var assignOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, ".=": true, "%=": true, "**=": true,
	"??=": true, "&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func binaryPrec(t Token) (op string, prec int, right bool, ok bool) {
	switch t.Type {
	case Op:
		info, found := binaryOps[t.Value]
		if !found {
			return "", 0, false, false
		}
		op = t.Value
		if op == "<>" {
			op = "!="
		}
		return op, info.prec, info.right, true
	case Ident:
		w := strings.ToLower(t.Value)
		if prec, found := wordOps[w]; found {
			return w, prec, false, true
		}
	}
	return "", 0, false, false
}

func (p *parser) parseExpr(min int) ast.Expr {
	left := p.parseUnary()
	for {
		if p.isOp("?") && precTernary >= min {
			p.next()
			if p.acceptOp(":") {
				left = &ast.Ternary{Cond: left, Else: p.parseExpr(precTernary + 1)}
				continue
			}
			then := p.parseExpr(precAssign)
			p.expectOp(":")
			left = &ast.Ternary{Cond: left, Then: then, Else: p.parseExpr(precTernary + 1)}
			continue
		}

		op, prec, right, ok := binaryPrec(p.peek())
		if !ok || prec < min {
			return left
		}
		p.next()
		if op == "instanceof" {
			left = &ast.Instanceof{Expr: left, Class: p.parseClassRef()}
			continue
		}
		next := prec + 1
		if right {
			next = prec
		}
		left = &ast.Binary{Op: op, Left: left, Right: p.parseExpr(next)}
	}
}

func (p *parser) parseUnary() ast.Expr {
	t := p.peek()
	switch t.Type {
	case Op:
		switch t.Value {
		case "!":
			p.next()
			return &ast.Unary{Op: "!", Operand: p.parseExpr(precInstanceof)}
		case "-", "+", "~":
			p.next()
			return &ast.Unary{Op: t.Value, Operand: p.parseExpr(precUnary)}
		case "@":
			p.next()
			return &ast.Suppress{Expr: p.parseExpr(precUnary)}
		case "++", "--":
			p.next()
			return &ast.IncDec{Op: t.Value, Prefix: true, Target: p.parseExpr(precUnary)}
		}
	case Cast:
		p.next()
		return &ast.Cast{To: t.Value, Expr: p.parseExpr(precUnary)}
	case Ident:
		switch strings.ToLower(t.Value) {
		case "new":
			return p.maybeAssign(p.parsePostfixOps(p.parseNew()))
		case "clone":
			p.next()
			return &ast.Clone{Expr: p.parseExpr(precUnary)}
		case "print":
			p.next()
			return &ast.Print{Expr: p.parseExpr(precAssign)}
		case "yield":
			return p.parseYield()
		case "throw":
			p.next()
			return &ast.Throw{Expr: p.parseExpr(precLowest)}
		}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expr {
	return p.maybeAssign(p.parsePostfixOps(p.parsePrimary()))
}

func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Variable, *ast.Index, *ast.PropertyFetch, *ast.StaticPropFetch, *ast.ListExpr, *ast.ArrayLit:
		return true
	}
	return false
}

func (p *parser) maybeAssign(target ast.Expr) ast.Expr {
	t := p.peek()
	if t.Type != Op || !isAssignable(target) {
		return target
	}
	if t.Value == "=" {
		p.next()
		byRef := p.acceptOp("&")
		return &ast.Assign{Target: asListTarget(target), Value: p.parseExpr(precAssign), ByRef: byRef}
	}
	if assignOps[t.Value] {
		if _, isArray := target.(*ast.ArrayLit); isArray {
			return target
		}
		p.next()
		return &ast.CompoundAssign{Op: strings.TrimSuffix(t.Value, "="), Target: target, Value: p.parseExpr(precAssign)}
	}
	return target
}

// asListTarget turns a short array literal used as an assignment target
// into a destructuring list
func asListTarget(e ast.Expr) ast.Expr {
	arr, ok := e.(*ast.ArrayLit)
	if !ok {
		return e
	}
	items := make([]*ast.ArrayItem, len(arr.Items))
	for i, item := range arr.Items {
		if item == nil {
			continue
		}
		items[i] = &ast.ArrayItem{Key: item.Key, Value: asListTarget(item.Value), ByRef: item.ByRef}
	}
	return &ast.ListExpr{Items: items}
}

func (p *parser) parsePostfixOps(expr ast.Expr) ast.Expr {
	for {
		t := p.peek()
		if t.Type != Op {
			return expr
		}
		switch t.Value {
		case "[":
			p.next()
			if p.acceptOp("]") {
				expr = &ast.Index{Target: expr}
				continue
			}
			idx := p.parseExpr(precLowest)
			p.expectOp("]")
			expr = &ast.Index{Target: expr, Index: idx}
		case "->", "?->":
			p.next()
			name, nameExpr := p.parseMemberName()
			nullSafe := t.Value == "?->"
			if p.isOp("(") {
				args, firstClass := p.parseArgs()
				expr = &ast.MethodCall{Object: expr, Method: name, MethodExpr: nameExpr, Args: args, NullSafe: nullSafe, FirstClass: firstClass}
			} else {
				expr = &ast.PropertyFetch{Object: expr, Name: name, NameExpr: nameExpr, NullSafe: nullSafe}
			}
		case "::":
			p.next()
			expr = p.parseStaticMember(ast.ClassRef{Expr: expr})
		case "(":
			args, firstClass := p.parseArgs()
			expr = &ast.FuncCall{Callee: expr, Args: args, FirstClass: firstClass}
		case "++", "--":
			p.next()
			expr = &ast.IncDec{Op: t.Value, Target: expr}
		default:
			return expr
		}
	}
}

func (p *parser) parseMemberName() (string, ast.Expr) {
	t := p.peek()
	switch {
	case t.Type == Ident:
		p.next()
		return t.Value, nil
	case t.Type == Variable:
		p.next()
		return "", &ast.Variable{Name: t.Value}
	case p.acceptOp("{"):
		e := p.parseExpr(precLowest)
		p.expectOp("}")
		return "", e
	}
	p.failExpecting("identifier")
	return "", nil
}

func (p *parser) parseStaticMember(class ast.ClassRef) ast.Expr {
	t := p.peek()
	switch {
	case t.Type == Variable:
		p.next()
		if p.isOp("(") {
			args, firstClass := p.parseArgs()
			return &ast.StaticCall{Class: class, MethodExpr: &ast.Variable{Name: t.Value}, Args: args, FirstClass: firstClass}
		}
		return &ast.StaticPropFetch{Class: class, Name: t.Value}
	case t.Type == Ident:
		p.next()
		if p.isOp("(") {
			args, firstClass := p.parseArgs()
			return &ast.StaticCall{Class: class, Method: t.Value, Args: args, FirstClass: firstClass}
		}
		name := t.Value
		if strings.EqualFold(name, "class") {
			name = "class"
		}
		return &ast.ClassConstFetch{Class: class, Name: name}
	case p.acceptOp("{"):
		e := p.parseExpr(precLowest)
		p.expectOp("}")
		if p.isOp("(") {
			args, firstClass := p.parseArgs()
			return &ast.StaticCall{Class: class, MethodExpr: e, Args: args, FirstClass: firstClass}
		}
		return &ast.ClassConstFetch{Class: class, NameExpr: e}
	}
	p.failExpecting("identifier")
	return nil
}

// parseClassRef reads the right-hand side of instanceof
func (p *parser) parseClassRef() ast.ClassRef {
	if t := p.peek(); t.Type == Ident {
		p.next()
		return ast.ClassRef{Name: t.Value}
	}
	return ast.ClassRef{Expr: p.parsePostfixOps(p.parsePrimary())}
}

func (p *parser) parseArgs() ([]ast.Arg, bool) {
	p.expectOp("(")
	if p.isOp("...") && p.isOpAt(1, ")") {
		p.next()
		p.next()
		return nil, true
	}
	args := []ast.Arg{}
	for !p.isOp(")") {
		var a ast.Arg
		switch {
		case p.acceptOp("..."):
			a.Unpack = true
		case p.peek().Type == Ident && p.isOpAt(1, ":"):
			a.Name = p.next().Value
			p.next()
		}
		a.Value = p.parseExpr(precLowest)
		args = append(args, a)
		if !p.acceptOp(",") {
			break
		}
	}
	p.expectOp(")")
	return args, false
}

func (p *parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Type {
	case Variable:
		p.next()
		return &ast.Variable{Name: t.Value}
	case IntLit:
		p.next()
		return p.intLiteral(t.Value)
	case FloatLit:
		p.next()
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.Value, "_", ""), 64)
		if err != nil {
			p.fail("Invalid numeric literal")
		}
		return &ast.FloatLit{Value: f}
	case StringLit:
		p.next()
		return &ast.StringLit{Value: t.Value}
	case Template:
		p.next()
		e, err := interpolate(t.Value, t.Heredoc)
		if err != nil {
			panic(&syntaxError{msg: err.Error(), line: t.Line})
		}
		return e
	case Op:
		switch t.Value {
		case "(":
			p.next()
			e := p.parseExpr(precLowest)
			p.expectOp(")")
			return e
		case "[":
			return p.parseArrayLit("[", "]")
		case "$":
			return p.parseVariableVariable()
		}
	case Ident:
		return p.parseIdentExpr()
	}
	p.unexpected()
	return nil
}

// parseVariableVariable reads $$name, $$$name and ${expr}
func (p *parser) parseVariableVariable() ast.Expr {
	p.expectOp("$")
	if p.acceptOp("{") {
		e := p.parseExpr(precLowest)
		p.expectOp("}")
		return &ast.Variable{NameExpr: e}
	}
	if t := p.peek(); t.Type == Variable {
		p.next()
		return &ast.Variable{NameExpr: &ast.Variable{Name: t.Value}}
	}
	if p.isOp("$") {
		return &ast.Variable{NameExpr: p.parseVariableVariable()}
	}
	p.failExpecting("variable")
	return nil
}

func (p *parser) intLiteral(raw string) ast.Expr {
	s := strings.ReplaceAll(raw, "_", "")
	base := 10
	switch {
	case len(s) > 1 && (s[1] == 'x' || s[1] == 'X'):
		base, s = 16, s[2:]
	case len(s) > 1 && (s[1] == 'b' || s[1] == 'B'):
		base, s = 2, s[2:]
	case len(s) > 1 && (s[1] == 'o' || s[1] == 'O'):
		base, s = 8, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err == nil {
		return &ast.IntLit{Value: n}
	}
	if u, uerr := strconv.ParseUint(s, base, 64); uerr == nil {
		return &ast.FloatLit{Value: float64(u)}
	}
	if base == 10 {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return &ast.FloatLit{Value: f}
		}
	}
	p.fail("Invalid numeric literal")
	return nil
}

var magicConstants = map[string]bool{
	"__LINE__": true, "__FILE__": true, "__DIR__": true, "__FUNCTION__": true,
	"__CLASS__": true, "__METHOD__": true, "__NAMESPACE__": true, "__TRAIT__": true,
}

func (p *parser) parseIdentExpr() ast.Expr {
	t := p.peek()
	lower := strings.ToLower(t.Value)
	switch lower {
	case "array":
		if p.isOpAt(1, "(") {
			p.next()
			return p.parseArrayLit("(", ")")
		}
	case "list":
		if p.isOpAt(1, "(") {
			p.next()
			return asListTarget(p.parseArrayLit("(", ")"))
		}
	case "isset":
		p.next()
		p.expectOp("(")
		vars := p.parseExprList(")")
		p.expectOp(")")
		return &ast.Isset{Vars: vars}
	case "empty":
		p.next()
		p.expectOp("(")
		e := p.parseExpr(precLowest)
		p.expectOp(")")
		return &ast.Empty{Expr: e}
	case "fn":
		if p.isOpAt(1, "(") || p.isOpAt(1, "&") {
			p.next()
			return p.parseArrowFn(false)
		}
	case "function":
		if p.isOpAt(1, "(") || p.isOpAt(1, "&") {
			p.next()
			return p.parseClosure(false)
		}
	case "static":
		switch {
		case p.isKeywordAt(1, "fn"):
			p.next()
			p.next()
			return p.parseArrowFn(true)
		case p.isKeywordAt(1, "function"):
			p.next()
			p.next()
			return p.parseClosure(true)
		}
	case "match":
		if p.isOpAt(1, "(") {
			return p.parseMatch()
		}
	case "new", "clone", "print", "yield", "throw":
		return p.parseUnary()
	}

	if upper := strings.ToUpper(t.Value); magicConstants[upper] {
		p.next()
		return &ast.MagicConst{Name: upper}
	}

	p.next()
	if p.isOp("(") {
		args, firstClass := p.parseArgs()
		return &ast.FuncCall{Name: t.Value, Args: args, FirstClass: firstClass}
	}
	if p.acceptOp("::") {
		return p.parseStaticMember(ast.ClassRef{Name: t.Value})
	}
	return &ast.ConstFetch{Name: t.Value}
}

func (p *parser) parseArrayLit(open, close string) *ast.ArrayLit {
	p.expectOp(open)
	items := []*ast.ArrayItem{}
	for !p.isOp(close) {
		if p.acceptOp(",") {
			items = append(items, nil)
			continue
		}
		item := &ast.ArrayItem{}
		if p.acceptOp("...") {
			item.Unpack = true
			item.Value = p.parseExpr(precLowest)
		} else {
			item.ByRef = p.acceptOp("&")
			v := p.parseExpr(precLowest)
			if p.acceptOp("=>") {
				item.Key = v
				item.ByRef = p.acceptOp("&")
				v = p.parseExpr(precLowest)
			}
			item.Value = v
		}
		items = append(items, item)
		if !p.acceptOp(",") {
			break
		}
	}
	p.expectOp(close)
	return &ast.ArrayLit{Items: items}
}

func (p *parser) parseArrowFn(static bool) ast.Expr {
	p.acceptOp("&")
	fn := &ast.ArrowFn{Static: static}
	fn.Params = p.parseParams()
	fn.ReturnType = p.parseReturnType()
	p.expectOp("=>")
	outer := p.yields
	fn.Body = p.parseExpr(precAssign)
	p.yields = outer
	return fn
}

func (p *parser) parseClosure(static bool) ast.Expr {
	p.acceptOp("&")
	c := &ast.Closure{Static: static}
	c.Params = p.parseParams()
	if p.acceptKeyword("use") {
		p.expectOp("(")
		for !p.isOp(")") {
			byRef := p.acceptOp("&")
			c.Uses = append(c.Uses, ast.ClosureUse{Name: p.expectVariable(), ByRef: byRef})
			if !p.acceptOp(",") {
				break
			}
		}
		p.expectOp(")")
	}
	c.ReturnType = p.parseReturnType()
	c.Body, c.Generator = p.parseFunctionBody()
	return c
}

func (p *parser) parseMatch() ast.Expr {
	p.expectKeyword("match")
	p.expectOp("(")
	m := &ast.Match{Subject: p.parseExpr(precLowest)}
	p.expectOp(")")
	p.expectOp("{")
	for !p.acceptOp("}") {
		var arm ast.MatchArm
		if p.isKeyword("default") && (p.isOpAt(1, "=>") || p.isOpAt(1, ",")) {
			p.next()
			p.acceptOp(",")
		} else {
			arm.Conds = []ast.Expr{p.parseExpr(precLowest)}
			for p.acceptOp(",") && !p.isOp("=>") {
				arm.Conds = append(arm.Conds, p.parseExpr(precLowest))
			}
		}
		p.expectOp("=>")
		arm.Body = p.parseExpr(precLowest)
		m.Arms = append(m.Arms, arm)
		if !p.acceptOp(",") {
			p.expectOp("}")
			break
		}
	}
	return m
}

func (p *parser) parseNew() ast.Expr {
	p.expectKeyword("new")
	n := &ast.New{}
	if p.acceptKeyword("class") {
		if p.isOp("(") {
			n.Args = p.parseNewArgs()
		}
		decl := &ast.ClassDecl{}
		p.parseClassHeader(decl)
		decl.Body = p.parseClassBody(false)
		n.Anon = decl
		return n
	}

	t := p.peek()
	switch {
	case t.Type == Ident:
		p.next()
		n.Class = ast.ClassRef{Name: t.Value}
	case t.Type == Variable:
		p.next()
		var e ast.Expr = &ast.Variable{Name: t.Value}
		for p.isOp("->") || p.isOp("::") || p.isOp("[") {
			switch p.next().Value {
			case "->":
				name, nameExpr := p.parseMemberName()
				e = &ast.PropertyFetch{Object: e, Name: name, NameExpr: nameExpr}
			case "::":
				e = &ast.StaticPropFetch{Class: ast.ClassRef{Expr: e}, Name: p.expectVariable()}
			default:
				idx := p.parseExpr(precLowest)
				p.expectOp("]")
				e = &ast.Index{Target: e, Index: idx}
			}
		}
		n.Class = ast.ClassRef{Expr: e}
	case p.acceptOp("("):
		n.Class = ast.ClassRef{Expr: p.parseExpr(precLowest)}
		p.expectOp(")")
	default:
		p.unexpected()
	}
	if p.isOp("(") {
		n.Args = p.parseNewArgs()
	}
	return n
}

// parseNewArgs parses constructor arguments; a first-class callable
// placeholder has no meaning after new
func (p *parser) parseNewArgs() []ast.Arg {
	args, firstClass := p.parseArgs()
	if firstClass {
		p.fail("Cannot create Closure for new expression")
	}
	return args
}

func (p *parser) parseYield() ast.Expr {
	p.expectKeyword("yield")
	p.yields++
	if p.acceptKeyword("from") {
		return &ast.YieldFrom{Expr: p.parseExpr(precAssign)}
	}
	if t := p.peek(); t.Type == EOF || (t.Type == Op && strings.Contains(";),]", t.Value)) {
		return &ast.Yield{}
	}
	v := p.parseExpr(precTernary)
	if p.acceptOp("=>") {
		return &ast.Yield{Key: v, Value: p.parseExpr(precTernary)}
	}
	return &ast.Yield{Value: v}
}
