package lang

import (
	"strings"
)

// checkFunctionFlow validates the control-flow shape of a block-bodied
// function: no statement may follow one that always exits, and a function
// with a return type may not complete without returning.
func checkFunctionFlow(fn *FuncDecl) error {
	completes, err := stmtCompletes(fn.Body)
	if err != nil {
		return err
	}

	if completes && !fn.IsVoid() {
		return ErrParse.At(fn.At).
			Withf("not all code paths of '%s' return a value", fn.Name)
	}

	return nil
}

// stmtCompletes reports whether execution can continue past s.
func stmtCompletes(s Stmt) (bool, error) {
	switch s := s.(type) {
	case *Block:
		completes := true

		for _, inner := range s.Stmts {
			if !completes {
				return false, ErrParse.At(inner.Pos()).Withf("unreachable code")
			}

			c, err := stmtCompletes(inner)
			if err != nil {
				return false, err
			}

			completes = c
		}

		return completes, nil

	case *ReturnStmt, *BreakStmt, *ContinueStmt:
		return false, nil

	case *IfStmt:
		then, err := stmtCompletes(s.Then)
		if err != nil {
			return false, err
		}

		if s.Else == nil {
			return true, nil
		}

		els, err := stmtCompletes(s.Else)
		if err != nil {
			return false, err
		}

		return then || els, nil

	case *WhileStmt:
		if _, err := stmtCompletes(s.Body); err != nil {
			return false, err
		}

		return !isConstTrue(s.Cond) || breaks(s.Body), nil

	case *ForStmt:
		if _, err := stmtCompletes(s.Body); err != nil {
			return false, err
		}

		return (s.Cond != nil && !isConstTrue(s.Cond)) || breaks(s.Body), nil

	case *ForeachStmt:
		if _, err := stmtCompletes(s.Body); err != nil {
			return false, err
		}

		return true, nil

	default:
		return true, nil
	}
}

func isConstTrue(x Expr) bool {
	lit, ok := x.(*Literal)

	return ok && lit.Kind == LitBool && lit.Bool
}

// breaks reports whether s contains a break that exits the loop owning s.
// Breaks inside nested loops belong to those loops.
func breaks(s Stmt) bool {
	switch s := s.(type) {
	case *BreakStmt:
		return true
	case *Block:
		for _, inner := range s.Stmts {
			if breaks(inner) {
				return true
			}
		}
	case *IfStmt:
		return breaks(s.Then) || (s.Else != nil && breaks(s.Else))
	}

	return false
}

// checkEntryPoints verifies that every expected signature is defined with a
// matching shape. Inferred ("var") return types are confirmed by the binder.
func checkEntryPoints(file *File, sigs []FunctionSignature) error {
	for _, sig := range sigs {
		var (
			found   bool
			nearest *FuncDecl
		)

		for fn := range file.Funcs() {
			if fn.Name != sig.Name || len(fn.TypeParams) > 0 {
				continue
			}

			nearest = fn

			if declMatches(fn, sig) {
				found = true

				break
			}
		}

		switch {
		case found:
			continue

		case nearest == nil:
			return ErrParse.Withf("entry point %s is not defined", sig)

		default:
			return ErrParse.At(nearest.At).
				Withf("entry point '%s' does not match signature %s", sig.Name, sig)
		}
	}

	return nil
}

func declMatches(fn *FuncDecl, sig FunctionSignature) bool {
	if len(fn.Params) != len(sig.Params) {
		return false
	}

	if !fn.Ret.IsVar() && !sameTypeName(fn.Ret, sig.Return) {
		return false
	}

	for i, p := range fn.Params {
		want := sig.Params[i]
		if p.Mod != want.Mod || !sameTypeName(p.Type, want.Type) {
			return false
		}
	}

	return true
}

func sameTypeName(t *TypeExpr, want *Type) bool {
	if want == nil || want == Void {
		return t == nil || t.String() == "void"
	}

	return strings.ReplaceAll(t.String(), " ", "") == want.String()
}
