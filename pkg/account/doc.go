// Package account implements the account operations: Register, Login,
// Logout, ChangePassword, GetSelf and GetByID.
//
// A Service is built explicitly from its collaborators (Deps) and owns its
// validator. Emails are trimmed and lower-cased before every lookup.
//
// Login returns auth.ErrInvalidCredentials for both unknown emails and wrong
// passwords and performs a bcrypt comparison in both cases. Logout succeeds
// for tokens that no longer verify. Password changes do not revoke sessions
// issued earlier, and role changes take effect at the next login.
package account
