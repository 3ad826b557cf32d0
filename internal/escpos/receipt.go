package escpos

import (
	"fmt"
	"strings"
	"time"
)

// Item is one line of a kitchen order.
type Item struct {
	Quantity  int
	Name      string
	Modifiers []string
	Notes     string
}

// Order carries everything FormatKitchenReceipt needs to render a
// ticket.
type Order struct {
	Station      string
	OrderNumber  string
	OrderType    string
	TableNumber  string
	CustomerName string
	Priority     int
	Items        []Item
	TimestampMS  int64
}

// FormatKitchenReceipt renders a kitchen ticket, matching the original
// daemon's layout byte-for-byte in structure (station header, rule,
// order block, urgent banner, items with modifiers/notes, footer rule,
// printed-at stamp, cut).
func FormatKitchenReceipt(o Order, paperWidth PaperWidth) []byte {
	b := New(paperWidth)

	b.Initialize().
		Align(AlignCenter).
		Size(SizeDoubleBoth).
		Bold(true).
		Text(strings.ToUpper(o.Station)).
		NewLine().
		Bold(false).
		Size(SizeNormal).
		DrawLine('=')

	b.Align(AlignLeft).
		Size(SizeDoubleWidth).
		Bold(true).
		Text(fmt.Sprintf("ORDER %s", o.OrderNumber)).
		NewLine().
		Size(SizeNormal).
		Bold(false)

	if o.OrderType != "" {
		b.Text(fmt.Sprintf("Type: %s", strings.ToUpper(o.OrderType))).NewLine()
	}
	if o.TableNumber != "" {
		b.Text(fmt.Sprintf("Table: %s", o.TableNumber)).NewLine()
	}
	if o.CustomerName != "" {
		b.Text(fmt.Sprintf("Customer: %s", o.CustomerName)).NewLine()
	}

	if o.Priority == 1 {
		b.Inverse(true).Bold(true).Text(" URGENT ").Inverse(false).Bold(false).NewLine()
	}

	b.DrawLine('-')

	for _, item := range o.Items {
		b.Bold(true).
			Size(SizeDoubleHeight).
			Text(fmt.Sprintf("%dx %s", item.Quantity, item.Name)).
			NewLine().
			Size(SizeNormal).
			Bold(false)

		for _, m := range item.Modifiers {
			b.Text(fmt.Sprintf("  + %s", m)).NewLine()
		}

		if item.Notes != "" {
			b.Underline(true).Text(fmt.Sprintf("  NOTE: %s", item.Notes)).Underline(false).NewLine()
		}

		b.Feed(1)
	}

	b.DrawLine('-')

	ts := time.UnixMilli(o.TimestampMS).UTC().Format("15:04")

	b.Align(AlignCenter).
		Text(fmt.Sprintf("Printed: %s", ts)).
		NewLine().
		Feed(2).
		Cut(false)

	return b.Build()
}

// FormatTestPrint renders the diagnostic test ticket.
func FormatTestPrint(paperWidth PaperWidth) []byte {
	b := New(paperWidth)

	widthLabel := "58mm"
	if paperWidth == Width80mm {
		widthLabel = "80mm"
	}

	b.Initialize().
		Align(AlignCenter).
		Size(SizeDoubleBoth).
		Bold(true).
		Text("TEST PRINT").
		NewLine().
		Size(SizeNormal).
		Bold(false).
		DrawLine('=').
		Align(AlignLeft).
		Text("Printer is working correctly!").
		NewLine().
		Feed(1).
		Text(fmt.Sprintf("Paper width: %s", widthLabel)).
		NewLine().
		Text(fmt.Sprintf("Timestamp: %s", time.Now().Format("2006-01-02 15:04:05"))).
		NewLine().
		DrawLine('-').
		Align(AlignCenter).
		Text("Text Formatting Tests:").
		NewLine().
		Feed(1).
		Bold(true).
		Text("Bold Text").
		NewLine().
		Bold(false).
		Underline(true).
		Text("Underlined Text").
		NewLine().
		Underline(false).
		Inverse(true).
		Text("Inverse Text").
		NewLine().
		Inverse(false).
		Size(SizeDoubleWidth).
		Text("Double Width").
		NewLine().
		Size(SizeDoubleHeight).
		Text("Double Height").
		NewLine().
		Size(SizeNormal).
		DrawLine('=').
		Feed(1).
		QRCode("https://eatsome.nl", 5).
		Feed(1).
		Text("QR Code Test").
		NewLine().
		Feed(2).
		Cut(false)

	return b.Build()
}
