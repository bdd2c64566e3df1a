package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/skywatchlabs/go-squawk-alert/internal/config"
	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

// Notifier sends one alert per newly detected emergency aircraft.
type Notifier interface {
	Notify(ctx context.Context, state *models.AircraftState) error
}

// sender is the delivery half of gomail, split out so tests can fake it.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier delivers alerts over SMTP to a single recipient. Each
// aircraft gets its own message so detections stay ordered in the inbox.
type EmailNotifier struct {
	sender sender
	from   string
	to     string
}

func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, state *models.AircraftState) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", Subject(state))
	m.SetBody("text/plain", Body(state))

	// gomail has no context support, so race the send against
	// cancellation; a cancelled cycle must not sit on a stuck SMTP dial.
	// The buffered channel lets the send goroutine finish either way.
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.sender.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error sending alert email: %w", err)
		}
		return nil
	}
}

// Subject embeds the flight callsign so successive alerts are
// distinguishable at a glance.
func Subject(state *models.AircraftState) string {
	return fmt.Sprintf("ALERT: Air France %s - SQUAWK 7700 EMERGENCY", orUnknown(state.TrimmedCallsign()))
}

// Body renders the fixed plain-text alert template. Absent fields render as
// "Unknown" so the layout never shifts between emails.
func Body(state *models.AircraftState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Air France flight %s is squawking 7700!\n\n", orUnknown(state.TrimmedCallsign()))

	b.WriteString("Flight Details:\n")
	fmt.Fprintf(&b, "  Flight:       %s\n", orUnknown(state.TrimmedCallsign()))
	fmt.Fprintf(&b, "  Registration: %s\n", orUnknown(state.Registration))
	fmt.Fprintf(&b, "  Aircraft:     %s\n", orUnknown(state.Type))
	fmt.Fprintf(&b, "  Squawk:       %s\n", orUnknown(state.Squawk))
	fmt.Fprintf(&b, "  ICAO hex:     %s\n\n", orUnknown(state.Hex))

	b.WriteString("Position Information:\n")
	fmt.Fprintf(&b, "  Altitude: %s ft\n", formatAltitude(state))
	fmt.Fprintf(&b, "  Speed:    %s kts\n", formatFloat(state.GroundSpeed))
	fmt.Fprintf(&b, "  Lat:      %s\n", formatFloat(state.Latitude))
	fmt.Fprintf(&b, "  Lon:      %s\n\n", formatFloat(state.Longitude))

	fmt.Fprintf(&b, "Route: %s -> %s\n\n", orUnknown(state.Origin), orUnknown(state.Destination))
	fmt.Fprintf(&b, "Track live: %s\n\n", state.TrackingURL())
	fmt.Fprintf(&b, "Detected at %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	return b.String()
}

func formatAltitude(state *models.AircraftState) string {
	if state.OnGround {
		return "on ground"
	}
	return formatFloat(state.AltitudeFt)
}

func formatFloat(f *float64) string {
	if f == nil {
		return "Unknown"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", *f), "0"), ".")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
