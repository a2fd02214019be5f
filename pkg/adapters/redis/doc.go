/*
Package redis shares the session signature key between server replicas.

Sessions are stateless, but every replica must sign with the same secret for a
cookie issued by one to be accepted by another. KeyStore publishes that secret
in Redis and provides it to registry builds through Machine.
*/
package redis
