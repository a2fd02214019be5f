/*
Package signature signs and verifies session payloads with a shared secret.

The payload itself stays plaintext: a signature only proves that the server
produced it. Signing is stateless and safe for concurrent use.

The fallback DefaultKey exists so a development server starts without any
configuration. Running with it in production is a misconfiguration, since
anyone can forge sessions signed with a published key.
*/
package signature
