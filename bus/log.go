package bus

import (
	"log"
	"os"

	"github.com/nats-io/nats.go"
)

// Log subscribes to all bus traffic and prints it. Used by the
// `codoscraper log` command when debugging a running service.
func Log(natsServer, authToken string) {
	nc, err := Connect(natsServer, authToken, "Log")
	if err != nil {
		log.Println("Error connecting to NATS:", err)
		os.Exit(-1)
	}

	log.Println("Logging bus traffic on:", natsServer)

	_, err = nc.Subscribe(">", func(msg *nats.Msg) {
		log.Printf("%v: %s", msg.Subject, msg.Data)
	})
	if err != nil {
		log.Println("Error subscribing:", err)
		os.Exit(-1)
	}
}
