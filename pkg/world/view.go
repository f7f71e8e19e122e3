package world

import "context"

// View computes a value under a read view and returns it. It exists
// as a free function because methods cannot introduce the result type
// parameter. On error the zero value of T is returned.
func View[M any, W World[M], T any](wr *Wrapper[M, W], view func(W) T) (T, error) {
	var out T
	err := wr.Read(func(w W) {
		out = view(w)
	})
	return out, err
}

// ViewContext is View with a bounded wait.
func ViewContext[M any, W World[M], T any](ctx context.Context, wr *Wrapper[M, W], view func(W) T) (T, error) {
	var out T
	err := wr.ReadContext(ctx, func(w W) {
		out = view(w)
	})
	return out, err
}
