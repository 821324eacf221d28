// Package tickets issues the QR entry tickets attached to bookings.
package tickets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"parkly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultTTL = 15 * time.Minute

	identifierPrefix = "QR_"
	suffixLength     = 9
	base36           = "0123456789abcdefghijklmnopqrstuvwxyz"
	imageSize        = 256
	payloadPrefix    = "data:image/png;base64,"
)

// Ticket is what a customer shows at the garage gate
type Ticket struct {
	Identifier string    `json:"ticket_identifier"`
	Payload    string    `json:"ticket_payload"`
	ExpiresAt  time.Time `json:"ticket_expires_at"`
}

type Issuer interface {
	Issue(ctx context.Context, bookingID uuid.UUID) (*Ticket, error)
}

type qrIssuer struct {
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(ttl time.Duration) Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &qrIssuer{ttl: ttl, now: time.Now}
}

func (i *qrIssuer) Issue(ctx context.Context, bookingID uuid.UUID) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issuedAt := i.now().UTC()
	identifier, err := NewIdentifier(issuedAt)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to generate ticket identifier")
	}

	content := fmt.Sprintf("%s|%s", identifier, bookingID)
	png, err := qrcode.Encode(content, qrcode.Medium, imageSize)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to render ticket QR code")
	}

	return &Ticket{
		Identifier: identifier,
		Payload:    payloadPrefix + base64.StdEncoding.EncodeToString(png),
		ExpiresAt:  issuedAt.Add(i.ttl),
	}, nil
}

// NewIdentifier builds QR_<unix millis>_<9 random base36 chars>
func NewIdentifier(at time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString(identifierPrefix)
	sb.WriteString(fmt.Sprintf("%d_", at.UnixMilli()))

	radix := big.NewInt(int64(len(base36)))
	for n := 0; n < suffixLength; n++ {
		idx, err := rand.Int(rand.Reader, radix)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36[idx.Int64()])
	}
	return sb.String(), nil
}
