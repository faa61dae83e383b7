package core

// The minimal native set. The standard library proper lives outside the
// core; these exist so control flow, infix lookahead and re-evaluation have
// something real to run through.

func (rt *Runtime) bootUserContext() error {
	rt.user = rt.newVarList(StubFlagManaged)
	rt.adoptRoot(rt.user)

	mk := func(name string, infix bool, dispatch Dispatcher, pspecs ...Param) error {
		details, err := rt.MakeAction(name, pspecs, dispatch)
		if err != nil {
			return err
		}
		if infix {
			setInfix(details)
		}
		var val Cell
		InitAction(&val, details)
		if infix {
			val.flags |= CellFlagInfix
		}
		return rt.SetUserVar(name, &val)
	}

	sym := func(name string) *Stub {
		s, err := rt.Intern(name)
		if err != nil {
			panic(diverge("boot symbol " + name))
		}
		return s
	}

	if err := mk("if", false, nativeIf,
		Param{Name: sym("condition"), Class: ParamNormal},
		Param{Name: sym("branch"), Class: ParamNormal, Types: []Heart{HeartBlock}},
	); err != nil {
		return err
	}
	if err := mk("either", false, nativeEither,
		Param{Name: sym("condition"), Class: ParamNormal},
		Param{Name: sym("true-branch"), Class: ParamNormal, Types: []Heart{HeartBlock}},
		Param{Name: sym("false-branch"), Class: ParamNormal, Types: []Heart{HeartBlock}},
	); err != nil {
		return err
	}
	if err := mk("and", true, nativeAnd,
		Param{Name: sym("left"), Class: ParamNormal},
		Param{Name: sym("right"), Class: ParamNormal},
	); err != nil {
		return err
	}
	if err := mk("+", true, nativeAdd,
		Param{Name: sym("value1"), Class: ParamTight, Types: []Heart{HeartInteger}},
		Param{Name: sym("value2"), Class: ParamTight, Types: []Heart{HeartInteger}},
	); err != nil {
		return err
	}
	if err := mk("*", true, nativeMultiply,
		Param{Name: sym("value1"), Class: ParamTight, Types: []Heart{HeartInteger}},
		Param{Name: sym("value2"), Class: ParamTight, Types: []Heart{HeartInteger}},
	); err != nil {
		return err
	}
	if err := mk("block?", false, nativeBlockQ,
		Param{Name: sym("value"), Class: ParamNormal},
	); err != nil {
		return err
	}
	if err := mk("null?", false, nativeNullQ,
		Param{Name: sym("value"), Class: ParamNormal},
	); err != nil {
		return err
	}
	if err := mk("eval", false, nativeEval,
		Param{Name: sym("value"), Class: ParamNormal},
	); err != nil {
		return err
	}
	if err := mk("break", false, nativeBreak); err != nil {
		return err
	}
	return nil
}

func nativeIf(l *Level) Status {
	rt := l.rt
	if !l.Arg(1).IsTruthy() {
		InitBlank(l.Out)
		return StatusDone
	}
	branch := l.Arg(2)
	feed := rt.NewArrayFeed(branch.Series(), branch.Index(), l.specifierFor(branch))
	sub := rt.PushLevel(l.Out, feed)
	sub.state = stateStepping
	l.cont = func(l *Level) Status { return StatusDone }
	return StatusContinue
}

func nativeEither(l *Level) Status {
	rt := l.rt
	branch := l.Arg(3)
	if l.Arg(1).IsTruthy() {
		branch = l.Arg(2)
	}
	feed := rt.NewArrayFeed(branch.Series(), branch.Index(), l.specifierFor(branch))
	sub := rt.PushLevel(l.Out, feed)
	sub.state = stateStepping
	l.cont = func(l *Level) Status { return StatusDone }
	return StatusContinue
}

func nativeAnd(l *Level) Status {
	InitLogic(l.Out, l.Arg(1).IsTruthy() && l.Arg(2).IsTruthy())
	return StatusDone
}

func nativeAdd(l *Level) Status {
	InitInteger(l.Out, l.Arg(1).Integer()+l.Arg(2).Integer())
	return StatusDone
}

func nativeMultiply(l *Level) Status {
	InitInteger(l.Out, l.Arg(1).Integer()*l.Arg(2).Integer())
	return StatusDone
}

func nativeBlockQ(l *Level) Status {
	InitLogic(l.Out, l.Arg(1).heart == HeartBlock)
	return StatusDone
}

func nativeNullQ(l *Level) Status {
	InitLogic(l.Out, l.Arg(1).IsNulled())
	return StatusDone
}

// nativeEval runs a block in place; for any other value it asks the nearest
// stepping level to consume the spare as its next value, which is how
// re-evaluation avoids manufacturing a synthetic array.
func nativeEval(l *Level) Status {
	v := l.Arg(1)
	if v.heart == HeartBlock || v.heart == HeartGroup {
		feed := l.rt.NewArrayFeed(v.Series(), v.Index(), l.specifierFor(v))
		sub := l.rt.PushLevel(l.Out, feed)
		sub.state = stateStepping
		l.cont = func(l *Level) Status { return StatusDone }
		return StatusContinue
	}
	target := l.prior
	for target != nil && target.state != stateStepping {
		target = target.prior
	}
	if target == nil || target.prior == nil {
		*l.Out = *v
		return StatusDone
	}
	target.spare = *v
	target.flags |= levelFlagReevaluate
	*l.Out = *v
	return StatusDone
}

func nativeBreak(l *Level) Status {
	var label Cell
	sym, err := l.rt.Intern("break")
	if err != nil {
		return l.Fail(failf(ErrKindInternal, "%v", err))
	}
	InitWord(&label, sym)
	var arg Cell
	InitBlank(&arg)
	return l.Throw(label, arg)
}
