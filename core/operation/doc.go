// Package operation describes units of server work and runs their
// middleware chains.
//
// An Operation is either a query or a mutation, fixed at construction. It
// carries an optional input schema, an ordered middleware list and a handler.
// Middleware steps augment a per-request Values accumulator that the handler
// finally receives as Call.Ctx:
//
//	withUser := func(mc operation.MiddlewareCall) (operation.Values, error) {
//		u, err := lookup(mc.Context, mc.Transport.Request())
//		if err != nil {
//			return operation.Values{}, err
//		}
//		return mc.Next(operation.V("user", u)), nil
//	}
//
//	op := operation.NewProcedure().Use(withUser).Query(func(c operation.Call) (any, error) {
//		u, _ := operation.Lookup[*User](c.Ctx, "user")
//		return map[string]any{"email": u.Email}, nil
//	})
package operation
