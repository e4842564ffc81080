// Package api provides the HTTP REST API of the issue tracker.
//
// Routes are mounted under /api on a gorilla/mux router:
//
//	POST   /api/auth/register        create an account (rate limited)
//	POST   /api/auth/login           exchange credentials for a token
//	GET    /api/auth/me              current user (bearer)
//	POST   /api/auth/logout          stateless acknowledgement
//	PUT    /api/user/update-name     change display name (bearer)
//	PUT    /api/user/update-password change password (bearer)
//	GET    /api/posts                list issues (rate limited)
//	POST   /api/posts                create an issue (bearer)
//	GET    /api/posts/{id}           read an owned issue (bearer)
//	PUT    /api/posts/{id}           update an owned issue (bearer)
//	DELETE /api/posts/{id}           delete an owned issue (bearer)
//
// Errors are JSON bodies of the form {"error": "..."}; see writeError for the
// status mapping.
//
//	server := api.NewServer(api.Options{Auth: svc, Issues: store, Limiter: limiter, Logger: logger})
//	http.ListenAndServe(":8080", server)
package api
