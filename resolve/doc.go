// Package resolve turns host and service names into candidate endpoints for
// sockets.Socket.ConnectAny and Bind.
//
// Host names are normalized with IDNA before lookup. An empty host yields the
// passive wildcard endpoints of the requested family, so the result can be
// bound directly. An empty service is rejected.
//
//	r := resolve.NewResolver()
//	eps, err := r.LookupEndPoints(ctx, "example.com", "443", resolve.Hints{Type: interfaces.Stream})
//	if err != nil {
//		return err
//	}
//	err = sock.ConnectAny(eps)
package resolve
