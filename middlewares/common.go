package middlewares

import "reflect"

// IsEmpty reports whether a middleware config struct carries no settings at
// all, in which case the middleware is not constructed.
func IsEmpty(c any) bool {
	return reflect.ValueOf(c).Elem().IsZero()
}

// boolVal dereferences an optional bool setting, defaulting to false.
func boolVal(b *bool) bool {
	return b != nil && *b
}

// BoolPtr builds the *bool form the optional settings use.
func BoolPtr(v bool) *bool {
	return &v
}
