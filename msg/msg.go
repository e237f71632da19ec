// Package msg delivers operator alerts when scraping degrades, either
// through Twilio SMS or the process log.
package msg

import "log"

// Notifier delivers one alert. The key identifies the alert class and
// is used for throttling; the message is what gets delivered.
type Notifier interface {
	Notify(key, message string) error
}

// Log prints alerts to the process log. It is the notifier of last
// resort when nothing else is configured.
type Log struct{}

// Notify prints the alert
func (Log) Notify(_, message string) error {
	log.Println("ALERT:", message)
	return nil
}
