// Package auth turns credentials into sessions and sessions into identities.
//
// Passwords are stored as bcrypt hashes and are never kept anywhere else.
// A successful login produces a random opaque token, the server keeps the
// token -> user id mapping in a SessionStore and nothing else: every request
// re-reads the user row, so blocking or demoting a user is visible on the
// very next request without touching existing sessions.
//
// Authorize is a pure function over the projection of the user and the
// action being attempted. A blocked account is denied everything, even
// when it also carries the admin flag.
//
// If the token is lost the user must login again. Tokens are lost when they
// expire, when the service restarts or when they are evicted from the cache.
package auth
