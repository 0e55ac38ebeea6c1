package notify

import (
	"html"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"walletwatch/internal/chains"
	"walletwatch/internal/model"
)

const (
	swapEmoji     = "\U0001F504"
	outgoingEmoji = "\U0001F514"
	incomingEmoji = "\U0001F4E5"
)

var usdPrinter = message.NewPrinter(language.English)

// Message is one notification to render for a matched wallet.
type Message struct {
	Event        model.TransactionEvent
	Direction    model.Direction
	Counterparty string
}

// Render builds the HTML body sent to a recipient. chain may be the zero value
// when the registry no longer knows the event's chain.
func Render(label string, chain chains.Chain, msg Message) string {
	name := chain.Name
	if name == "" {
		name = strings.ToUpper(msg.Event.Chain)
	}

	var b strings.Builder
	if msg.Event.IsSwap() {
		b.WriteString(swapEmoji + " <b>[" + html.EscapeString(label) + "] DEX swap detected!</b>\n\n")
		b.WriteString("Chain: " + html.EscapeString(name) + "\n")
		b.WriteString("DEX: " + html.EscapeString(msg.Counterparty) + "\n")
		b.WriteString("Swap: " + html.EscapeString(msg.Event.DisplayAmount) + "\n")
	} else {
		emoji, peer := incomingEmoji, "From"
		direction := model.DirectionIn
		if msg.Direction == model.DirectionOut {
			emoji, peer = outgoingEmoji, "To"
			direction = model.DirectionOut
		}
		b.WriteString(emoji + " <b>[" + html.EscapeString(label) + "] Transaction detected!</b>\n\n")
		b.WriteString("Chain: " + html.EscapeString(name) + "\n")
		b.WriteString("Type: " + msg.Event.Kind.String() + "\n")
		b.WriteString("Direction: " + string(direction) + "\n")
		b.WriteString("Amount: " + html.EscapeString(msg.Event.DisplayAmount) + FormatUSD(msg.Event.USDValue) + "\n")
		b.WriteString(peer + ": <code>" + html.EscapeString(ShortAddress(msg.Counterparty)) + "</code>\n")
	}

	if url := chain.TxURL(msg.Event.TxHash); url != "" {
		b.WriteString("\n<a href=\"" + html.EscapeString(url) + "\">View transaction</a>")
	}
	return strings.TrimSpace(b.String())
}

// FormatUSD renders " ($1,234)" for positive values and "" otherwise.
func FormatUSD(usd float64) string {
	if usd <= 0 {
		return ""
	}
	return usdPrinter.Sprintf(" ($%.0f)", usd)
}

// ShortAddress abbreviates addresses longer than 20 characters to first10...last6.
func ShortAddress(addr string) string {
	if len(addr) <= 20 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-6:]
}
