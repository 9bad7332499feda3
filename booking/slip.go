package booking

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"servicedesk/models"
)

// RenderSlip produces a one page PDF confirmation for b with a QR code of
// its booking id, for the front desk to scan on arrival.
func RenderSlip(b *models.Booking) ([]byte, error) {
	qrPNG, err := qrcode.Encode(b.BookingID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Service Booking")
	pdf.Ln(12)

	names := make([]string, 0, len(b.Services))
	for _, s := range b.Services {
		names = append(names, s.Name)
	}
	vehicle := b.Customer.VehicleNo
	if vehicle == "" {
		vehicle = "N/A"
	}

	rows := [][2]string{
		{"Booking ID", b.BookingID},
		{"Status", string(b.Status)},
		{"Customer", b.Customer.Name},
		{"Phone", b.Customer.Phone},
		{"Email", b.Customer.Email},
		{"Vehicle", vehicle},
		{"Branch", b.Branch.Name},
		{"Address", b.Branch.Address},
		{"Date", b.Date.UTC().Format(models.DateLayout)},
		{"Time slot", b.TimeSlot},
		{"Category", b.Category},
		{"Services", strings.Join(names, ", ")},
		{"Amount", b.Amount},
	}

	pdf.SetFont("Arial", "", 12)
	for _, row := range rows {
		pdf.Cell(0, 10, tr(fmt.Sprintf("%s: %s", row[0], row[1])))
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
