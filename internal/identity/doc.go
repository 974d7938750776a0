// Package identity persists the client identities gateways issue.
//
// A Trådfri gateway hands out a pre-shared key once, in answer to a
// registration request signed with the security code printed on the
// device. The bridge stores that key per gateway host so later runs can
// authenticate without the security code.
//
// The pre-shared key is a credential. It is stored in the bridge's SQLite
// file (mode 0600) and must never be logged; use logging.Redact.
package identity
