package espudp

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys of the reasons passed to ConnectionListener callbacks.
const (
	msgNoSoftAP           = "msg.no_softap"
	msgCreateSocketFailed = "msg.create_socket_failed"
	msgTransportFailure   = "msg.transport_failure"
)

//nolint:errcheck
func init() {
	// --- English (default) ---
	message.SetString(language.AmericanEnglish, msgNoSoftAP, "No SoftAP connection")
	message.SetString(language.AmericanEnglish, msgCreateSocketFailed, "Create socket failed: %v")
	message.SetString(language.AmericanEnglish, msgTransportFailure, "Link failure: %v")

	// --- German (de) ---
	message.SetString(language.German, msgNoSoftAP, "Keine SoftAP-Verbindung")
	message.SetString(language.German, msgCreateSocketFailed, "Socket konnte nicht erstellt werden: %v")
	message.SetString(language.German, msgTransportFailure, "Verbindungsfehler: %v")

	// --- Finnish (fi) ---
	message.SetString(language.Finnish, msgNoSoftAP, "Ei SoftAP-yhteyttä")
	message.SetString(language.Finnish, msgCreateSocketFailed, "Socketin luonti epäonnistui: %v")
	message.SetString(language.Finnish, msgTransportFailure, "Yhteysvirhe: %v")

	// --- Swedish (sv) ---
	message.SetString(language.Swedish, msgNoSoftAP, "Ingen SoftAP-anslutning")
	message.SetString(language.Swedish, msgCreateSocketFailed, "Kunde inte skapa socket: %v")
	message.SetString(language.Swedish, msgTransportFailure, "Länkfel: %v")
}

// Localize selects the language of notification reasons.
// Unsupported languages fall back to English.
func (d *Driver) Localize(tag language.Tag) {
	d.printer.Store(message.NewPrinter(tag))
}

func (d *Driver) text(key string, args ...interface{}) string {
	return d.printer.Load().Sprintf(key, args...)
}
