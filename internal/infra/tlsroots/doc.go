// Package tlsroots loads TLS material for both ends of the websocket.
//
// The server side uses a CertReloader, which keeps the serving key pair
// current while the files on disk are replaced (certificate rotation
// without restart). The client side builds a tls.Config whose root pool is
// the system pool plus optional private CA files.
package tlsroots
