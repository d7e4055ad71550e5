package lang

func (b *binder) bindBlock(blk *Block) (*bBlock, error) {
	b.fn.push()
	defer b.fn.pop()

	out := &bBlock{stmts: make([]bstmt, 0, len(blk.Stmts))}

	for _, s := range blk.Stmts {
		bs, err := b.bindStmt(s)
		if err != nil {
			return nil, err
		}

		if bs != nil {
			out.stmts = append(out.stmts, bs)
		}
	}

	return out, nil
}

// bindEmbedded binds the body of an if or loop in its own scope.
func (b *binder) bindEmbedded(s Stmt) (bstmt, error) {
	if blk, ok := s.(*Block); ok {
		return b.bindBlock(blk)
	}

	b.fn.push()
	defer b.fn.pop()

	return b.bindStmt(s)
}

func (b *binder) bindStmt(s Stmt) (bstmt, error) {
	switch s := s.(type) {
	case *Block:
		return b.bindBlock(s)

	case *EmptyStmt:
		return nil, nil

	case *DeclStmt:
		return b.bindDecl(s)

	case *ExprStmt:
		switch s.X.(type) {
		case *AssignExpr, *CallExpr, *IncDecExpr, *NewExpr:
		default:
			return nil, ErrBinding.At(s.At).
				Withf("only assignment, call, increment, decrement, and new expressions can be statements")
		}

		x, err := b.bindExpr(s.X)
		if err != nil {
			return nil, err
		}

		return &bExprStmt{x: x}, nil

	case *IfStmt:
		cond, err := b.bindCond(s.Cond)
		if err != nil {
			return nil, err
		}

		then, err := b.bindEmbedded(s.Then)
		if err != nil {
			return nil, err
		}

		var els bstmt

		if s.Else != nil {
			if els, err = b.bindEmbedded(s.Else); err != nil {
				return nil, err
			}
		}

		return &bIf{cond: cond, then: then, els: els}, nil

	case *WhileStmt:
		cond, err := b.bindCond(s.Cond)
		if err != nil {
			return nil, err
		}

		body, err := b.bindEmbedded(s.Body)
		if err != nil {
			return nil, err
		}

		return &bWhile{cond: cond, body: body}, nil

	case *ForStmt:
		return b.bindFor(s)

	case *ForeachStmt:
		return b.bindForeach(s)

	case *BreakStmt:
		return &bBreak{}, nil

	case *ContinueStmt:
		return &bContinue{}, nil

	case *ReturnStmt:
		return b.bindReturn(s)
	}

	return nil, ErrBinding.At(s.Pos()).Withf("unsupported statement %T", s)
}

func (b *binder) bindDecl(s *DeclStmt) (bstmt, error) {
	out := &bBlock{}

	for _, v := range s.Vars {
		var (
			t    *Type
			init bexpr
			err  error
		)

		if v.Init != nil {
			if init, err = b.bindExpr(v.Init); err != nil {
				return nil, err
			}
		}

		if v.Type.IsVar() {
			if init == nil {
				return nil, ErrBinding.At(v.At).
					Withf("implicitly typed variable '%s' requires an initializer", v.Name)
			}

			if t, err = inferredType(init); err != nil {
				return nil, err
			}
		} else {
			if t, err = b.typeOf(v.Type); err != nil {
				return nil, err
			}

			if init != nil {
				if init, err = b.coerce(init, t); err != nil {
					return nil, err
				}
			}
		}

		slot := b.fn.declare(v.Name, t)
		out.stmts = append(out.stmts, &bLocalDecl{slot: slot, t: t, init: init})
	}

	if len(out.stmts) == 1 {
		return out.stmts[0], nil
	}

	return out, nil
}

func (b *binder) bindCond(e Expr) (bexpr, error) {
	x, err := b.bindExpr(e)
	if err != nil {
		return nil, err
	}

	if x.typ() != Bool {
		return nil, ErrBinding.At(e.Pos()).
			Withf("condition must be bool, not %s", x.typ())
	}

	return x, nil
}

func (b *binder) bindFor(s *ForStmt) (bstmt, error) {
	b.fn.push()
	defer b.fn.pop()

	out := &bFor{}

	for _, init := range s.Init {
		bs, err := b.bindForClause(init)
		if err != nil {
			return nil, err
		}

		out.init = append(out.init, bs)
	}

	if s.Cond != nil {
		cond, err := b.bindCond(s.Cond)
		if err != nil {
			return nil, err
		}

		out.cond = cond
	}

	for _, post := range s.Post {
		x, err := b.bindExpr(post)
		if err != nil {
			return nil, err
		}

		out.post = append(out.post, x)
	}

	body, err := b.bindEmbedded(s.Body)
	if err != nil {
		return nil, err
	}

	out.body = body

	return out, nil
}

// bindForClause binds an initializer clause of a for statement, which may
// be any expression rather than only a statement expression.
func (b *binder) bindForClause(s Stmt) (bstmt, error) {
	if es, ok := s.(*ExprStmt); ok {
		x, err := b.bindExpr(es.X)
		if err != nil {
			return nil, err
		}

		return &bExprStmt{x: x}, nil
	}

	return b.bindStmt(s)
}

func (b *binder) bindForeach(s *ForeachStmt) (bstmt, error) {
	x, err := b.bindExpr(s.X)
	if err != nil {
		return nil, err
	}

	out := &bForeach{at: s.At, x: x}

	var elem *Type

	switch t := x.typ(); {
	case t.kind == KindArray:
		out.mode = indexArray
		elem = t.elem

	case t == String:
		out.mode = indexString
		elem = String

	case t.class != nil:
		elem, out.each = t.class.enumerator()
		if out.each == nil {
			return nil, ErrBinding.At(s.X.Pos()).Withf("%s is not enumerable", t)
		}

		out.mode = indexHost

	default:
		return nil, ErrBinding.At(s.X.Pos()).Withf("%s is not enumerable", t)
	}

	vt := elem

	if !s.Type.IsVar() {
		if vt, err = b.typeOf(s.Type); err != nil {
			return nil, err
		}

		if vt != elem {
			if convCost(elem, vt) < 0 && !numericLike(elem, vt) && !(elem.IsReference() && vt.IsReference()) {
				return nil, ErrBinding.At(s.At).
					Withf("cannot convert element type %s to %s", elem, vt)
			}

			out.conv = vt
		}
	}

	b.fn.push()
	defer b.fn.pop()

	out.slot = b.fn.declare(s.Name, vt)

	body, err := b.bindEmbedded(s.Body)
	if err != nil {
		return nil, err
	}

	out.body = body

	return out, nil
}

func (b *binder) bindReturn(s *ReturnStmt) (bstmt, error) {
	if b.fn.inst == nil {
		return nil, ErrBinding.At(s.At).Withf("return outside of a function")
	}

	ret := b.fn.inst.ret

	if s.X == nil {
		if ret != Void {
			return nil, ErrBinding.At(s.At).Withf("missing return value")
		}

		return &bReturn{}, nil
	}

	x, err := b.bindExpr(s.X)
	if err != nil {
		return nil, err
	}

	if ret == Void {
		return nil, ErrBinding.At(s.At).Withf("void function cannot return a value")
	}

	if x, err = b.coerce(x, ret); err != nil {
		return nil, err
	}

	return &bReturn{x: x}, nil
}
