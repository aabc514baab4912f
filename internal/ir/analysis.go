package ir

// WrittenFields collects every field name a body may write, in first-write
// order. The tier manager uses this to decide whether a call site is stable
// enough to promote and which writes the generated code must guard.
func WrittenFields(b *Block) []string {
	var out []string
	seen := make(map[string]bool)
	walkStmts(b, func(s Stmt) {
		if set, ok := s.(*Set); ok && !seen[set.Field] {
			seen[set.Field] = true
			out = append(out, set.Field)
		}
	})
	return out
}

// HasCalls reports whether a body contains method calls or Proceed. Bodies
// with calls are left to the interpreter tier.
func HasCalls(b *Block) bool {
	found := false
	walkExprs(b, func(e Expr) {
		switch e.(type) {
		case *Call, *Proceed:
			found = true
		}
	})
	return found
}

func walkStmts(b *Block, fn func(Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		fn(s)
		switch st := s.(type) {
		case *Block:
			walkStmts(st, fn)
		case *If:
			walkStmts(st.Then, fn)
			walkStmts(st.Else, fn)
		case *While:
			walkStmts(st.Body, fn)
		}
	}
}

func walkExprs(b *Block, fn func(Expr)) {
	walkStmts(b, func(s Stmt) {
		switch st := s.(type) {
		case *Set:
			walkExpr(st.Value, fn)
		case *Let:
			walkExpr(st.Value, fn)
		case *Assign:
			walkExpr(st.Value, fn)
		case *If:
			walkExpr(st.Cond, fn)
		case *While:
			walkExpr(st.Cond, fn)
		case *Return:
			if st.Value != nil {
				walkExpr(st.Value, fn)
			}
		case *ExprStmt:
			walkExpr(st.X, fn)
		}
	})
}

func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch ex := e.(type) {
	case *Binary:
		walkExpr(ex.Left, fn)
		walkExpr(ex.Right, fn)
	case *Unary:
		walkExpr(ex.Operand, fn)
	case *Call:
		for _, a := range ex.Args {
			walkExpr(a, fn)
		}
	case *Proceed:
		for _, a := range ex.Args {
			walkExpr(a, fn)
		}
	}
}
