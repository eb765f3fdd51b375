// Package ticket issues booking confirmation tickets. A ticket's QR data is
// the Core Deterministic CBOR encoding of its payload, base64url encoded and
// followed by a keyed BLAKE3 tag, so a scanner holding the key can check it
// offline.
package ticket

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/openride/seatreserve/internal/domain"
)

const keyContext = "openride seatreserve 2026 ticket tag v1"

var ErrInvalidTicket = errors.New("invalid ticket")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ticket: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ticket: CBOR decoder initialization failed: " + err.Error())
	}
}

// Payload is what the QR code carries.
type Payload struct {
	BookingID string `cbor:"bookingId" json:"bookingId"`
	RouteID   string `cbor:"routeId" json:"routeId"`
	SeatCount int    `cbor:"seatCount" json:"seatCount"`
	IssuedAt  int64  `cbor:"issuedAt" json:"issuedAt"`
}

type Ticket struct {
	BookingID string    `json:"booking_id"`
	RouteID   string    `json:"route_id"`
	SeatCount int       `json:"seat_count"`
	IssuedAt  time.Time `json:"issued_at"`
	QRData    string    `json:"qr_data"`
	Hash      string    `json:"hash"`
}

type Issuer struct {
	key [32]byte
}

// NewIssuer derives the tag key from secret.
func NewIssuer(secret string) *Issuer {
	var i Issuer
	blake3.DeriveKey(keyContext, []byte(secret), i.key[:])
	return &i
}

func (i *Issuer) Issue(b domain.Booking, issuedAt time.Time) (*Ticket, error) {
	if b.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, domain.ErrInvalidTransition)
	}

	issuedAt = issuedAt.UTC().Truncate(time.Second)
	payload := Payload{
		BookingID: b.ID,
		RouteID:   b.RouteID,
		SeatCount: b.SeatCount,
		IssuedAt:  issuedAt.Unix(),
	}
	data, err := encMode.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}
	tag, err := i.tag(data)
	if err != nil {
		return nil, err
	}

	return &Ticket{
		BookingID: b.ID,
		RouteID:   b.RouteID,
		SeatCount: b.SeatCount,
		IssuedAt:  issuedAt,
		QRData:    base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(tag),
		Hash:      hex.EncodeToString(tag),
	}, nil
}

// Verify checks the tag on qrData and returns its payload.
func (i *Issuer) Verify(qrData string) (*Payload, error) {
	body, tagPart, ok := strings.Cut(qrData, ".")
	if !ok {
		return nil, fmt.Errorf("missing tag: %w", ErrInvalidTicket)
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", ErrInvalidTicket)
	}
	got, err := base64.RawURLEncoding.DecodeString(tagPart)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", ErrInvalidTicket)
	}

	want, err := i.tag(data)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, fmt.Errorf("tag mismatch: %w", ErrInvalidTicket)
	}

	var p Payload
	if err := decMode.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode: %w", ErrInvalidTicket)
	}
	return &p, nil
}

func (i *Issuer) tag(data []byte) ([]byte, error) {
	h, err := blake3.NewKeyed(i.key[:])
	if err != nil {
		return nil, fmt.Errorf("ticket tag: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
