// Package ast defines the syntax tree of console fragments.
package ast

import "strings"

// Node is any syntax tree node
type Node interface {
	// Kind returns the node-kind name used in error subjects
	Kind() string
}

// Expr is an expression node
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is a declared type: a name, a nullable, a union or an intersection
type TypeExpr struct {
	Name         string
	Nullable     bool
	Union        []*TypeExpr
	Intersection []*TypeExpr
}

func (t *TypeExpr) String() string {
	switch {
	case t == nil:
		return "mixed"
	case len(t.Union) > 0:
		parts := make([]string, len(t.Union))
		for i, u := range t.Union {
			if len(u.Intersection) > 0 {
				parts[i] = "(" + u.String() + ")"
			} else {
				parts[i] = u.String()
			}
		}
		return strings.Join(parts, "|")
	case len(t.Intersection) > 0:
		parts := make([]string, len(t.Intersection))
		for i, u := range t.Intersection {
			parts[i] = u.String()
		}
		return strings.Join(parts, "&")
	case t.Nullable:
		return "?" + t.Name
	default:
		return t.Name
	}
}

// Param is a declared function parameter
type Param struct {
	Name     string
	Type     *TypeExpr
	Default  Expr
	Variadic bool
	ByRef    bool
	// Promote holds the visibility of a promoted constructor property
	Promote  string
	Readonly bool
}

// Arg is a call argument
type Arg struct {
	Name   string
	Value  Expr
	Unpack bool
}

// ClassRef names a class either statically or through an expression
type ClassRef struct {
	Name string
	Expr Expr
}

// ---------------------------------------------------------------------------
// expressions
// ---------------------------------------------------------------------------

type (
	IntLit struct {
		Value int64
	}

	FloatLit struct {
		Value float64
	}

	StringLit struct {
		Value string
	}

	// Interpolated is a double-quoted string or heredoc with embedded expressions
	Interpolated struct {
		Parts []Expr
	}

	ConstFetch struct {
		Name string
	}

	ClassConstFetch struct {
		Class ClassRef
		Name  string
		// NameExpr is set for the dynamic form C::{$expr}
		NameExpr Expr
	}

	StaticPropFetch struct {
		Class ClassRef
		Name  string
	}

	MagicConst struct {
		Name string
	}

	Variable struct {
		Name string
		// NameExpr is set for $$name and ${expr}
		NameExpr Expr
	}

	Assign struct {
		Target Expr
		Value  Expr
		ByRef  bool
	}

	CompoundAssign struct {
		Op     string
		Target Expr
		Value  Expr
	}

	// ListExpr is a list() or short-list destructuring target. Nil items are holes.
	ListExpr struct {
		Items []*ArrayItem
	}

	Binary struct {
		Op          string
		Left, Right Expr
	}

	Unary struct {
		Op      string
		Operand Expr
	}

	Cast struct {
		To   string
		Expr Expr
	}

	Isset struct {
		Vars []Expr
	}

	Empty struct {
		Expr Expr
	}

	IncDec struct {
		Op     string
		Prefix bool
		Target Expr
	}

	Ternary struct {
		Cond Expr
		// Then is nil for the short form a ?: b
		Then Expr
		Else Expr
	}

	Match struct {
		Subject Expr
		Arms    []MatchArm
	}

	ArrowFn struct {
		Params     []Param
		ReturnType *TypeExpr
		Body       Expr
		Static     bool
	}

	Closure struct {
		Params     []Param
		Uses       []ClosureUse
		ReturnType *TypeExpr
		Body       []Stmt
		Static     bool
		Generator  bool
	}

	FuncCall struct {
		// Name is set for named calls, Callee for everything else
		Name       string
		Callee     Expr
		Args       []Arg
		FirstClass bool
	}

	MethodCall struct {
		Object     Expr
		Method     string
		MethodExpr Expr
		Args       []Arg
		NullSafe   bool
		FirstClass bool
	}

	StaticCall struct {
		Class      ClassRef
		Method     string
		MethodExpr Expr
		Args       []Arg
		FirstClass bool
	}

	PropertyFetch struct {
		Object   Expr
		Name     string
		NameExpr Expr
		NullSafe bool
	}

	ArrayLit struct {
		Items []*ArrayItem
	}

	Index struct {
		Target Expr
		// Index is nil for the append form $a[]
		Index Expr
	}

	New struct {
		Class ClassRef
		Anon  *ClassDecl
		Args  []Arg
	}

	Print struct {
		Expr Expr
	}

	Throw struct {
		Expr Expr
	}

	Instanceof struct {
		Expr  Expr
		Class ClassRef
	}

	Clone struct {
		Expr Expr
	}

	Suppress struct {
		Expr Expr
	}

	Yield struct {
		Key   Expr
		Value Expr
	}

	YieldFrom struct {
		Expr Expr
	}
)

// ArrayItem is one entry of an array literal or list target
type ArrayItem struct {
	Key    Expr
	Value  Expr
	Unpack bool
	ByRef  bool
}

// MatchArm is one arm of a match expression; nil Conds marks default
type MatchArm struct {
	Conds []Expr
	Body  Expr
}

// ClosureUse is a captured variable of a closure
type ClosureUse struct {
	Name  string
	ByRef bool
}

func (*IntLit) Kind() string          { return "Scalar_Int" }
func (*FloatLit) Kind() string        { return "Scalar_Float" }
func (*StringLit) Kind() string       { return "Scalar_String" }
func (*Interpolated) Kind() string    { return "Scalar_InterpolatedString" }
func (*ConstFetch) Kind() string      { return "Expr_ConstFetch" }
func (*ClassConstFetch) Kind() string { return "Expr_ClassConstFetch" }
func (*StaticPropFetch) Kind() string { return "Expr_StaticPropertyFetch" }
func (*MagicConst) Kind() string      { return "Scalar_MagicConst" }
func (*Variable) Kind() string        { return "Expr_Variable" }
func (*Assign) Kind() string          { return "Expr_Assign" }
func (*CompoundAssign) Kind() string  { return "Expr_AssignOp" }
func (*ListExpr) Kind() string        { return "Expr_List" }
func (*Binary) Kind() string          { return "Expr_BinaryOp" }
func (*Unary) Kind() string           { return "Expr_UnaryOp" }
func (*Cast) Kind() string            { return "Expr_Cast" }
func (*Isset) Kind() string           { return "Expr_Isset" }
func (*Empty) Kind() string           { return "Expr_Empty" }
func (*IncDec) Kind() string          { return "Expr_IncDec" }
func (*Ternary) Kind() string         { return "Expr_Ternary" }
func (*Match) Kind() string           { return "Expr_Match" }
func (*ArrowFn) Kind() string         { return "Expr_ArrowFunction" }
func (*Closure) Kind() string         { return "Expr_Closure" }
func (*FuncCall) Kind() string        { return "Expr_FuncCall" }
func (*MethodCall) Kind() string      { return "Expr_MethodCall" }
func (*StaticCall) Kind() string      { return "Expr_StaticCall" }
func (*PropertyFetch) Kind() string   { return "Expr_PropertyFetch" }
func (*ArrayLit) Kind() string        { return "Expr_Array" }
func (*Index) Kind() string           { return "Expr_ArrayDimFetch" }
func (*New) Kind() string             { return "Expr_New" }
func (*Print) Kind() string           { return "Expr_Print" }
func (*Throw) Kind() string           { return "Expr_Throw" }
func (*Instanceof) Kind() string      { return "Expr_Instanceof" }
func (*Clone) Kind() string           { return "Expr_Clone" }
func (*Suppress) Kind() string        { return "Expr_ErrorSuppress" }
func (*Yield) Kind() string           { return "Expr_Yield" }
func (*YieldFrom) Kind() string       { return "Expr_YieldFrom" }

func (*IntLit) exprNode()          {}
func (*FloatLit) exprNode()        {}
func (*StringLit) exprNode()       {}
func (*Interpolated) exprNode()    {}
func (*ConstFetch) exprNode()      {}
func (*ClassConstFetch) exprNode() {}
func (*StaticPropFetch) exprNode() {}
func (*MagicConst) exprNode()      {}
func (*Variable) exprNode()        {}
func (*Assign) exprNode()          {}
func (*CompoundAssign) exprNode()  {}
func (*ListExpr) exprNode()        {}
func (*Binary) exprNode()          {}
func (*Unary) exprNode()           {}
func (*Cast) exprNode()            {}
func (*Isset) exprNode()           {}
func (*Empty) exprNode()           {}
func (*IncDec) exprNode()          {}
func (*Ternary) exprNode()         {}
func (*Match) exprNode()           {}
func (*ArrowFn) exprNode()         {}
func (*Closure) exprNode()         {}
func (*FuncCall) exprNode()        {}
func (*MethodCall) exprNode()      {}
func (*StaticCall) exprNode()      {}
func (*PropertyFetch) exprNode()   {}
func (*ArrayLit) exprNode()        {}
func (*Index) exprNode()           {}
func (*New) exprNode()             {}
func (*Print) exprNode()           {}
func (*Throw) exprNode()           {}
func (*Instanceof) exprNode()      {}
func (*Clone) exprNode()           {}
func (*Suppress) exprNode()        {}
func (*Yield) exprNode()           {}
func (*YieldFrom) exprNode()       {}

// ---------------------------------------------------------------------------
// statements
// ---------------------------------------------------------------------------

type (
	ExprStmt struct {
		Expr Expr
	}

	Echo struct {
		Exprs []Expr
	}

	If struct {
		Cond    Expr
		Then    []Stmt
		ElseIfs []ElseIf
		Else    []Stmt
		HasElse bool
	}

	Switch struct {
		Subject Expr
		Cases   []SwitchCase
	}

	For struct {
		Init []Expr
		Cond []Expr
		Loop []Expr
		Body []Stmt
	}

	While struct {
		Cond Expr
		Body []Stmt
	}

	DoWhile struct {
		Body []Stmt
		Cond Expr
	}

	Foreach struct {
		Subject Expr
		Key     Expr
		Value   Expr
		ByRef   bool
		Body    []Stmt
	}

	Return struct {
		Expr Expr
	}

	Break struct {
		Depth int
	}

	Continue struct {
		Depth int
	}

	Block struct {
		Stmts []Stmt
	}

	Try struct {
		Body    []Stmt
		Catches []Catch
		Finally []Stmt
	}

	Unset struct {
		Vars []Expr
	}

	ConstDecl struct {
		Consts []ConstItem
	}

	FuncDecl struct {
		Name       string
		Params     []Param
		ReturnType *TypeExpr
		Body       []Stmt
		ByRef      bool
		// Generator is set when the body contains yield
		Generator bool
	}

	ClassDecl struct {
		Name       string
		Abstract   bool
		Final      bool
		Readonly   bool
		Extends    string
		Implements []string
		Body       ClassBody
	}

	InterfaceDecl struct {
		Name    string
		Extends []string
		Body    ClassBody
	}

	TraitDecl struct {
		Name string
		Body ClassBody
	}

	EnumDecl struct {
		Name        string
		BackingType string
		Implements  []string
		Body        ClassBody
	}

	Namespace struct {
		Name string
		// Body is set for the braced form
		Body   []Stmt
		Braced bool
	}

	Use struct {
		// Type is "", "function" or "const"
		Type  string
		Items []UseItem
	}

	Nop struct{}
)

// ElseIf is one elseif branch
type ElseIf struct {
	Cond Expr
	Body []Stmt
}

// SwitchCase is one case of a switch; a nil Cond marks default
type SwitchCase struct {
	Cond Expr
	Body []Stmt
}

// Catch is one catch clause
type Catch struct {
	Types []string
	Var   string
	Body  []Stmt
}

// ConstItem is one name = value pair
type ConstItem struct {
	Name  string
	Value Expr
}

// UseItem is one imported name with an optional alias
type UseItem struct {
	Name  string
	Alias string
}

// ClassBody holds the members shared by class-like declarations
type ClassBody struct {
	Consts    []ClassConst
	Props     []PropDecl
	Methods   []MethodDecl
	TraitUses []string
	Cases     []EnumCase
}

// ClassConst is a class constant
type ClassConst struct {
	Name       string
	Value      Expr
	Visibility string
	Final      bool
}

// PropDecl is a declared property
type PropDecl struct {
	Name       string
	Type       *TypeExpr
	Default    Expr
	Static     bool
	Readonly   bool
	Visibility string
}

// MethodDecl is a declared method; Body is nil for abstract methods
type MethodDecl struct {
	Name       string
	Params     []Param
	ReturnType *TypeExpr
	Body       []Stmt
	Static     bool
	Abstract   bool
	Final      bool
	Visibility string
	ByRef      bool
	Generator  bool
}

// EnumCase is one enum case with its optional backing value
type EnumCase struct {
	Name  string
	Value Expr
}

func (*ExprStmt) Kind() string      { return "Stmt_Expression" }
func (*Echo) Kind() string          { return "Stmt_Echo" }
func (*If) Kind() string            { return "Stmt_If" }
func (*Switch) Kind() string        { return "Stmt_Switch" }
func (*For) Kind() string           { return "Stmt_For" }
func (*While) Kind() string         { return "Stmt_While" }
func (*DoWhile) Kind() string       { return "Stmt_Do" }
func (*Foreach) Kind() string       { return "Stmt_Foreach" }
func (*Return) Kind() string        { return "Stmt_Return" }
func (*Break) Kind() string         { return "Stmt_Break" }
func (*Continue) Kind() string      { return "Stmt_Continue" }
func (*Block) Kind() string         { return "Stmt_Block" }
func (*Try) Kind() string           { return "Stmt_TryCatch" }
func (*Unset) Kind() string         { return "Stmt_Unset" }
func (*ConstDecl) Kind() string     { return "Stmt_Const" }
func (*FuncDecl) Kind() string      { return "Stmt_Function" }
func (*ClassDecl) Kind() string     { return "Stmt_Class" }
func (*InterfaceDecl) Kind() string { return "Stmt_Interface" }
func (*TraitDecl) Kind() string     { return "Stmt_Trait" }
func (*EnumDecl) Kind() string      { return "Stmt_Enum" }
func (*Namespace) Kind() string     { return "Stmt_Namespace" }
func (*Use) Kind() string           { return "Stmt_Use" }
func (*Nop) Kind() string           { return "Stmt_Nop" }

func (*ExprStmt) stmtNode()      {}
func (*Echo) stmtNode()          {}
func (*If) stmtNode()            {}
func (*Switch) stmtNode()        {}
func (*For) stmtNode()           {}
func (*While) stmtNode()         {}
func (*DoWhile) stmtNode()       {}
func (*Foreach) stmtNode()       {}
func (*Return) stmtNode()        {}
func (*Break) stmtNode()         {}
func (*Continue) stmtNode()      {}
func (*Block) stmtNode()         {}
func (*Try) stmtNode()           {}
func (*Unset) stmtNode()         {}
func (*ConstDecl) stmtNode()     {}
func (*FuncDecl) stmtNode()      {}
func (*ClassDecl) stmtNode()     {}
func (*InterfaceDecl) stmtNode() {}
func (*TraitDecl) stmtNode()     {}
func (*EnumDecl) stmtNode()      {}
func (*Namespace) stmtNode()     {}
func (*Use) stmtNode()           {}
func (*Nop) stmtNode()           {}
