// Command relaytoken prints a bearer token for POST /v1/payments/notify on
// the callback listener, signed with CALLBACK_JWT_SECRET.  Give it to the
// service that forwards payment notifications to this client.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/middleware"
)

func main() {
	subject := flag.String("sub", "payment-relay", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	tok, err := middleware.NewRelayToken(cfg.Callback.JWTSecret, *subject, *ttl)
	if err != nil {
		log.Fatalf("relaytoken: %v (is CALLBACK_JWT_SECRET set?)", err)
	}
	fmt.Fprintln(os.Stdout, tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
