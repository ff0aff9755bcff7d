// Command generate-auditor-keys outputs a fresh Ed25519 keypair in the
// PKCS8/X.509 base64 encodings the auditor's configuration expects.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	fmt.Println()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		log.Fatal(err)
	}
	pkix, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Private Key:\n%s\n\n", base64.StdEncoding.EncodeToString(pkcs8))
	fmt.Printf("Public Key:\n%s\n", base64.StdEncoding.EncodeToString(pkix))
}
