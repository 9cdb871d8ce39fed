// Package pix builds static PIX "copia e cola" payloads in the EMV BR Code
// format and renders them as QR codes.
package pix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	gui            = "br.gov.bcb.pix"
	maxNameBytes   = 25
	maxCityBytes   = 15
	maxTxIDBytes   = 25
	crcFieldPrefix = "6304"
	txIDPrefix     = "LB"
)

// ErrChecksumMismatch is returned by Verify when the trailing CRC is wrong.
var ErrChecksumMismatch = errors.New("pix: checksum mismatch")

// Merchant identifies the payment recipient.
type Merchant struct {
	Key  string
	Name string
	City string
}

// DefaultMerchant is the store's receiving account.
func DefaultMerchant() Merchant {
	return Merchant{Key: "51994682268", Name: "LANCHES E BEBIDAS", City: "RIO GRANDE"}
}

// Payload is a generated payment code. It is derived per request and never
// persisted.
type Payload struct {
	Text          string `json:"copyPaste"`
	TxID          string `json:"txid"`
	Amount        string `json:"amount"`
	DisplayAmount string `json:"displayAmount"`
	Checksum      string `json:"checksum"`
}

// TxID derives a transaction id from the last ten digits of the Unix time in
// milliseconds.
func TxID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 10 {
		ms = ms[len(ms)-10:]
	}
	return txIDPrefix + ms
}

// Build assembles the payload for a fixed merchant, transaction id and
// amount. The output is deterministic for identical inputs.
func Build(m Merchant, txid string, amount decimal.Decimal) (Payload, error) {
	account, err := EncodeFields(
		Field{Tag: "00", Value: gui},
		Field{Tag: "01", Value: m.Key},
	)
	if err != nil {
		return Payload{}, fmt.Errorf("merchant account: %w", err)
	}
	txid = truncate(txid, maxTxIDBytes)
	additional, err := EncodeField("05", txid)
	if err != nil {
		return Payload{}, fmt.Errorf("additional data: %w", err)
	}
	amountText := amount.StringFixed(2)
	body, err := EncodeFields(
		Field{Tag: "00", Value: "01"},
		Field{Tag: "26", Value: account},
		Field{Tag: "52", Value: "0000"},
		Field{Tag: "53", Value: "986"},
		Field{Tag: "54", Value: amountText},
		Field{Tag: "58", Value: "BR"},
		Field{Tag: "59", Value: truncate(m.Name, maxNameBytes)},
		Field{Tag: "60", Value: truncate(m.City, maxCityBytes)},
		Field{Tag: "62", Value: additional},
	)
	if err != nil {
		return Payload{}, err
	}
	body += crcFieldPrefix
	crc := Checksum(body)
	return Payload{
		Text:          body + crc,
		TxID:          txid,
		Amount:        amountText,
		DisplayAmount: strings.Replace(amountText, ".", ",", 1),
		Checksum:      crc,
	}, nil
}

// Generator builds payloads for a merchant using the clock for transaction ids.
type Generator struct {
	Merchant Merchant
	Now      func() time.Time
}

// Generate builds a payload for amount with a fresh transaction id.
func (g Generator) Generate(amount decimal.Decimal) (Payload, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Build(g.Merchant, TxID(now()), amount)
}

// Verify recomputes the trailing checksum.
func Verify(payload string) error {
	if len(payload) < len(crcFieldPrefix)+4 {
		return fmt.Errorf("%w: too short", ErrMalformed)
	}
	head := payload[:len(payload)-4]
	if !strings.HasSuffix(head, crcFieldPrefix) {
		return fmt.Errorf("%w: missing CRC field", ErrMalformed)
	}
	if got, want := payload[len(payload)-4:], Checksum(head); got != want {
		return fmt.Errorf("%w: got %s want %s", ErrChecksumMismatch, got, want)
	}
	return nil
}

// Parsed holds the decoded fields of a payload.
type Parsed struct {
	Key    string
	Name   string
	City   string
	Amount string
	TxID   string
}

// Parse verifies and decodes a payload.
func Parse(payload string) (Parsed, error) {
	if err := Verify(payload); err != nil {
		return Parsed{}, err
	}
	fields, err := DecodeFields(payload[:len(payload)-4-len(crcFieldPrefix)])
	if err != nil {
		return Parsed{}, err
	}
	var out Parsed
	for _, f := range fields {
		switch f.Tag {
		case "26":
			nested, err := DecodeFields(f.Value)
			if err != nil {
				return Parsed{}, err
			}
			for _, n := range nested {
				if n.Tag == "01" {
					out.Key = n.Value
				}
			}
		case "54":
			out.Amount = f.Value
		case "59":
			out.Name = f.Value
		case "60":
			out.City = f.Value
		case "62":
			nested, err := DecodeFields(f.Value)
			if err != nil {
				return Parsed{}, err
			}
			for _, n := range nested {
				if n.Tag == "05" {
					out.TxID = n.Value
				}
			}
		}
	}
	return out, nil
}
