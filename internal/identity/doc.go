// Package identity resolves the owner on whose behalf an operation runs.
//
// The storefront facade asks a Provider once per call and hands the owner
// id explicitly to the core. Static serves the CLI's --as flag and tests;
// JWTProvider validates HS256 access tokens (Supabase style, owner in the
// "sub" claim) carried on the request context.
package identity
