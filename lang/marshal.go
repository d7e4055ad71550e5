package lang

import (
	"encoding/json"
)

// MarshalJSON implements json.Marshaler for File.
func (f *File) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToMap())
}

// ToMap converts the syntax tree to native Go maps and slices, one map per
// node keyed by field name, with the node kind under "node".
func (f *File) ToMap() map[string]any {
	decls := make([]any, len(f.Decls))
	for i, d := range f.Decls {
		decls[i] = nodeToNative(d)
	}

	return map[string]any{"decls": decls}
}

// TokensToMap converts a token stream to native Go values.
func TokensToMap(toks []Token) []any {
	out := make([]any, 0, len(toks))

	for _, t := range toks {
		m := map[string]any{
			"kind": t.Kind.String(),
			"text": t.Text,
			"pos":  t.Pos.String(),
		}

		switch t.Kind {
		case TokenInt:
			m["value"] = t.Int
		case TokenFloat, TokenDouble:
			m["value"] = t.Real
		case TokenString:
			m["value"] = t.Str
		case TokenInterp:
			parts := make([]any, len(t.Parts))

			for i, p := range t.Parts {
				if !p.IsHole() {
					parts[i] = map[string]any{"text": p.Text}

					continue
				}

				hole := map[string]any{"tokens": TokensToMap(p.Tokens)}
				if p.Format != "" {
					hole["format"] = p.Format
				}

				parts[i] = hole
			}

			m["parts"] = parts
		}

		out = append(out, m)
	}

	return out
}

func node(kind string, at Position, kv ...any) map[string]any {
	m := map[string]any{"node": kind, "pos": at.String()}

	for i := 0; i+1 < len(kv); i += 2 {
		if v := kv[i+1]; v != nil {
			m[kv[i].(string)] = v
		}
	}

	return m
}

func typeText(t *TypeExpr) any {
	if t == nil {
		return nil
	}

	return t.String()
}

func nodesToNative[T Node](ns []T) any {
	if len(ns) == 0 {
		return nil
	}

	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = nodeToNative(n)
	}

	return out
}

func argsToNative(args []*Arg) any {
	if len(args) == 0 {
		return nil
	}

	out := make([]any, len(args))

	for i, a := range args {
		x := nodeToNative(a.X)
		if m, ok := x.(map[string]any); ok && a.Mod != ByValue {
			m["mod"] = a.Mod.String()
		}

		out[i] = x
	}

	return out
}

// nodeToNative converts one node and its children.
func nodeToNative(n Node) any {
	if n == nil {
		return nil
	}

	switch n := n.(type) {
	case *VarDecl:
		var mod any
		if n.Mod != ModNone {
			mod = n.Mod.String()
		}

		return node("var", n.At, "mod", mod, "type", typeText(n.Type), "name", n.Name,
			"init", nodeToNative(exprOrNil(n.Init)))

	case *FuncDecl:
		params := make([]any, len(n.Params))

		for i, p := range n.Params {
			pm := map[string]any{"name": p.Name, "type": p.Type.String()}
			if p.Mod != ByValue {
				pm["mod"] = p.Mod.String()
			}

			params[i] = pm
		}

		var tps any
		if len(n.TypeParams) > 0 {
			tps = n.TypeParams
		}

		var body any
		if n.Body != nil {
			body = nodeToNative(n.Body)
		}

		return node("func", n.At, "name", n.Name, "return", typeText(n.Ret),
			"typeParams", tps, "params", params, "body", body,
			"expr", nodeToNative(exprOrNil(n.Expr)))

	case *ClassDecl:
		var tps any
		if len(n.TypeParams) > 0 {
			tps = n.TypeParams
		}

		return node("class", n.At, "name", n.Name, "typeParams", tps,
			"fields", nodesToNative(n.Fields),
			"ctors", nodesToNative(n.Ctors),
			"methods", nodesToNative(n.Methods))

	case *Block:
		stmts := make([]any, len(n.Stmts))
		for i, s := range n.Stmts {
			stmts[i] = nodeToNative(s)
		}

		return node("block", n.At, "stmts", stmts)

	case *DeclStmt:
		return node("decl", n.At, "vars", nodesToNative(n.Vars))

	case *ExprStmt:
		return node("expr", n.At, "x", nodeToNative(n.X))

	case *EmptyStmt:
		return node("empty", n.At)

	case *IfStmt:
		return node("if", n.At, "cond", nodeToNative(n.Cond),
			"then", nodeToNative(n.Then), "else", nodeToNative(stmtOrNil(n.Else)))

	case *WhileStmt:
		return node("while", n.At, "cond", nodeToNative(n.Cond), "body", nodeToNative(n.Body))

	case *ForStmt:
		return node("for", n.At, "init", nodesToNative(n.Init),
			"cond", nodeToNative(exprOrNil(n.Cond)), "post", nodesToNative(n.Post),
			"body", nodeToNative(n.Body))

	case *ForeachStmt:
		return node("foreach", n.At, "type", typeText(n.Type), "name", n.Name,
			"in", nodeToNative(n.X), "body", nodeToNative(n.Body))

	case *BreakStmt:
		return node("break", n.At)

	case *ContinueStmt:
		return node("continue", n.At)

	case *ReturnStmt:
		return node("return", n.At, "x", nodeToNative(exprOrNil(n.X)))

	case *Literal:
		var v any

		switch n.Kind {
		case LitBool:
			v = n.Bool
		case LitInt:
			v = n.Int
		case LitFloat, LitDouble:
			v = n.Real
		case LitString:
			v = n.Str
		}

		return node("literal", n.At, "value", v)

	case *Ident:
		var targs any
		if len(n.TypeArgs) > 0 {
			targs = nodesToNative(n.TypeArgs)
		}

		return node("ident", n.At, "name", n.Name, "typeArgs", targs)

	case *TypeExpr:
		return n.String()

	case *TypeRef:
		return node("type", n.At, "type", typeText(n.Type))

	case *ThisExpr:
		return node("this", n.At)

	case *InterpExpr:
		parts := make([]any, len(n.Parts))

		for i, p := range n.Parts {
			if p.X == nil {
				parts[i] = map[string]any{"text": p.Text}

				continue
			}

			hole := map[string]any{"x": nodeToNative(p.X)}
			if p.Format != "" {
				hole["format"] = p.Format
			}

			parts[i] = hole
		}

		return node("interp", n.At, "parts", parts)

	case *UnaryExpr:
		return node("unary", n.At, "op", n.Op, "x", nodeToNative(n.X))

	case *IncDecExpr:
		return node("incdec", n.At, "op", n.Op, "prefix", n.Prefix, "x", nodeToNative(n.X))

	case *BinaryExpr:
		return node("binary", n.At, "op", n.Op, "x", nodeToNative(n.X), "y", nodeToNative(n.Y))

	case *AssignExpr:
		return node("assign", n.At, "op", n.Op,
			"target", nodeToNative(n.Target), "value", nodeToNative(n.Value))

	case *CondExpr:
		return node("cond", n.At, "cond", nodeToNative(n.Cond),
			"then", nodeToNative(n.Then), "else", nodeToNative(n.Else))

	case *CastExpr:
		return node("cast", n.At, "type", typeText(n.Type), "x", nodeToNative(n.X))

	case *TypeTestExpr:
		return node(n.Op, n.At, "x", nodeToNative(n.X), "type", typeText(n.Type))

	case *MemberExpr:
		var targs any
		if len(n.TypeArgs) > 0 {
			targs = nodesToNative(n.TypeArgs)
		}

		return node("member", n.At, "x", nodeToNative(n.X), "name", n.Name, "typeArgs", targs)

	case *CallExpr:
		return node("call", n.At, "fun", nodeToNative(n.Fun), "args", argsToNative(n.Args))

	case *IndexExpr:
		return node("index", n.At, "x", nodeToNative(n.X), "index", nodeToNative(n.Index))

	case *NewExpr:
		m := node("new", n.At, "type", typeText(n.Type), "args", argsToNative(n.Args))

		if n.Init != nil {
			if len(n.Init.Members) > 0 {
				members := make([]any, len(n.Init.Members))
				for i, mi := range n.Init.Members {
					members[i] = map[string]any{"name": mi.Name, "value": nodeToNative(mi.Value)}
				}

				m["members"] = members
			}

			if len(n.Init.Elements) > 0 {
				m["elements"] = nodesToNative(n.Init.Elements)
			}
		}

		return m

	case *NewArrayExpr:
		return node("newArray", n.At, "elem", typeText(n.Elem),
			"len", nodeToNative(exprOrNil(n.Len)), "init", nodesToNative(n.Init))

	case *ElementList:
		return node("elements", n.At, "items", nodesToNative(n.Items))
	}

	return nil
}

// exprOrNil keeps a nil Expr from becoming a non-nil Node holding nil.
func exprOrNil(x Expr) Node {
	if x == nil {
		return nil
	}

	return x
}

func stmtOrNil(s Stmt) Node {
	if s == nil {
		return nil
	}

	return s
}
