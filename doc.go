// Package multilogin is an identity and token-issuance service: it
// authenticates principals via local passwords or externally issued identity
// assertions, mints HS256 session tokens, enforces role checks on protected
// routes, and manages stored credential lifecycle (self-service change,
// admin reset).
//
// Directory:
//   - Users carry a (email, provider) identity that is unique across the
//     directory. Accounts bound to the credentials provider store an
//     HMAC-SHA256 password digest; externally provisioned accounts never do.
//   - ProvisioningPolicy decides whether a first assertion login creates an
//     account (AutoProvisionPolicy) or fails (StrictPolicy). One policy is
//     active per deployment.
//
// Forwarding:
//   - ForwardingRelay replicates committed directory mutations to a
//     downstream directory best effort, carrying the caller's bearer token.
//     A downstream failure never rolls back the local write.
package multilogin
