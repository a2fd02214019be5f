/*
Package domain holds the error taxonomy shared by the dispatch core.

Recoverable, request-scoped failures are typed so the dispatcher can select a
response without inspecting messages:

  - ArgumentError: invalid request precondition (400, message verbatim).
  - ErrInvalidSessionSignature: tampered or forged session cookie (400).
  - ParseError: malformed structured request body with a line/column location (400 diagnostic).

Anything else escapes the dispatcher and is handled at the process boundary.
*/
package domain
