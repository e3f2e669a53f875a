// Command genkey prints a random secret suitable for JWT_SECRET.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

func main() {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	fmt.Printf("JWT_SECRET=%s\n", base64.StdEncoding.EncodeToString(buf))
}
