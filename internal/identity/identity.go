// Package identity carries the shopper identity through a request.
// Authentication itself happens upstream at the gateway; this package only
// trusts the headers the gateway forwards.
package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	userHeader  = "X-User-ID"
	guestHeader = "X-Guest-ID"
	adminHeader = "X-Admin-Role"
)

// Identity is a registered user id or an ephemeral guest id.
type Identity struct {
	ID    string
	Guest bool
}

func Registered(userID string) Identity {
	return Identity{ID: userID}
}

func Guest(id string) Identity {
	return Identity{ID: id, Guest: true}
}

// Key is the cart key for this shopper.
func (i Identity) Key() string { return i.ID }

type ctxKey struct{}

type adminKey struct{}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey{}).(bool)
	return v
}

// Middleware resolves the shopper identity. Unknown visitors get a minted
// guest id, echoed back so the gateway can persist it client-side.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id Identity
		switch {
		case r.Header.Get(userHeader) != "":
			id = Registered(r.Header.Get(userHeader))
		case r.Header.Get(guestHeader) != "":
			id = Guest(r.Header.Get(guestHeader))
		default:
			id = Guest(uuid.NewString())
			w.Header().Set(guestHeader, id.ID)
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		if r.Header.Get(adminHeader) == "admin" {
			ctx = context.WithValue(ctx, adminKey{}, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
