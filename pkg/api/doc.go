// Package api provides the HTTP REST API of the larder recipe service.
//
// # Overview
//
// Server wires account and recipe handlers onto a gorilla/mux router behind
// the auth gate, the role gate and the rate limiters from pkg/middleware, and
// wraps the whole tree in request id, access log, panic recovery, CORS and
// content-type middleware from pkg/httputil.
//
// # Routes
//
//	POST   /api/users/register        public
//	POST   /api/users/login           public, login rate limit
//	POST   /api/users/logout          public, clears the cookie
//	GET    /api/users/me              authenticated
//	PUT    /api/users/change-password authenticated
//	GET    /api/users/{id}            admin
//	POST   /api/recipes               authenticated (also /api/recipes/create)
//	GET    /api/recipes               public, filtered (also /api/recipes/get)
//	GET    /api/recipes/my-recipes    authenticated
//	GET    /api/recipes/{id}          public
//	PUT    /api/recipes/{id}          owner
//	DELETE /api/recipes/{id}          owner
//	GET    /api/admin/audit           admin, when a searchable audit sink exists
//
// # Responses
//
// Every body carries "message". Failures add a machine-readable "error" code
// and, for validation, an "errors" list. writeServiceError is the single
// place where service errors become status codes.
//
// # Usage Example
//
//	server := api.NewServer(api.Deps{
//		Accounts: accounts,
//		Recipes:  recipeService,
//		Gate:     gate,
//		Cookie:   cfg.Cookie(),
//	})
//	http.ListenAndServe(":5000", server)
package api
