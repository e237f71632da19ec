// Package bus defines the NATS subjects and payload helpers the
// service's pieces talk over. The API server never scrapes and the
// workers never speak HTTP; everything meets on the bus.
package bus
