package ticket

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/openride/seatreserve/internal/domain"
)

// RenderPDF writes a one-page printable ticket.
func RenderPDF(w io.Writer, t *Ticket, route *domain.Route, booking *domain.Booking) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("OpenRide Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "OPENRIDE E-TICKET")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking    : " + t.BookingID,
		"Route      : " + route.Origin + " -> " + route.Destination,
		"Departure  : " + route.DepartureTime.Format("Mon 02 Jan 2006 15:04 MST"),
		fmt.Sprintf("Seats      : %d", t.SeatCount),
		"Total paid : " + booking.TotalAmount.StringFixed(2),
		"Payment ref: " + booking.PaymentRef,
		"Issued     : " + t.IssuedAt.Format(time.RFC3339),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 4, "QR: "+t.QRData, "", "", false)
	pdf.MultiCell(0, 4, "BLAKE3: "+t.Hash, "", "", false)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this ticket to your driver at pickup. It is valid for the seats listed above only.", "", "", false)

	return pdf.Output(w)
}
