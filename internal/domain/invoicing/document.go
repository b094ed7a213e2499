package invoicing

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Document is the normalized content of a CFDI structured invoice
type Document struct {
	IssuerTaxID   string
	IssuerName    string
	ReceiverTaxID string
	ReceiverName  string
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	IssueDate     time.Time
	FiscalFolio   string

	// Optional header attributes
	Series   string
	Number   string
	Currency string
}

const rootElement = "Comprobante"

// CFDI issue dates carry no zone; both forms appear in the wild.
var issueDateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
}

type cfdiComprobante struct {
	SubTotal    string           `xml:"SubTotal,attr"`
	Total       string           `xml:"Total,attr"`
	Fecha       string           `xml:"Fecha,attr"`
	Serie       string           `xml:"Serie,attr"`
	Folio       string           `xml:"Folio,attr"`
	Moneda      string           `xml:"Moneda,attr"`
	Emisor      *cfdiParty       `xml:"Emisor"`
	Receptor    *cfdiParty       `xml:"Receptor"`
	Complemento *cfdiComplemento `xml:"Complemento"`
}

type cfdiParty struct {
	Rfc    string `xml:"Rfc,attr"`
	Nombre string `xml:"Nombre,attr"`
}

type cfdiComplemento struct {
	Timbre *cfdiTimbre `xml:"TimbreFiscalDigital"`
}

type cfdiTimbre struct {
	UUID string `xml:"UUID,attr"`
}

// ParseDocument reads a CFDI document. Element namespaces are matched by local
// name, so both cfdi:Comprobante (3.3 and 4.0) and unprefixed roots are accepted.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	start, err := firstElement(dec)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != rootElement {
		return nil, invalidFormat("root element is <%s>, expected <%s>", start.Name.Local, rootElement)
	}

	var c cfdiComprobante
	if err := dec.DecodeElement(&c, &start); err != nil {
		return nil, invalidFormat("malformed document: %v", err)
	}
	return c.normalize()
}

// ParseDocumentBytes is ParseDocument over an in-memory file
func ParseDocumentBytes(data []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(data))
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, invalidFormat("document has no root element")
		}
		if err != nil {
			return xml.StartElement{}, invalidFormat("malformed document: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}

func (c *cfdiComprobante) normalize() (*Document, error) {
	if c.Emisor == nil {
		return nil, invalidFormat("missing Emisor element")
	}
	if c.Receptor == nil {
		return nil, invalidFormat("missing Receptor element")
	}

	subtotal, err := parseAmount("SubTotal", c.SubTotal)
	if err != nil {
		return nil, err
	}
	total, err := parseAmount("Total", c.Total)
	if err != nil {
		return nil, err
	}
	issued, err := parseIssueDate(c.Fecha)
	if err != nil {
		return nil, err
	}

	var folio string
	if c.Complemento != nil && c.Complemento.Timbre != nil {
		folio = strings.ToUpper(strings.TrimSpace(c.Complemento.Timbre.UUID))
	}
	if folio == "" {
		return nil, ErrMissingFiscalFolio
	}

	return &Document{
		IssuerTaxID:   strings.TrimSpace(c.Emisor.Rfc),
		IssuerName:    strings.TrimSpace(c.Emisor.Nombre),
		ReceiverTaxID: strings.TrimSpace(c.Receptor.Rfc),
		ReceiverName:  strings.TrimSpace(c.Receptor.Nombre),
		Subtotal:      subtotal,
		Total:         total,
		IssueDate:     issued,
		FiscalFolio:   folio,
		Series:        c.Serie,
		Number:        c.Folio,
		Currency:      c.Moneda,
	}, nil
}

func parseAmount(attr, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, invalidFormat("missing %s attribute", attr)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidFormat("%s %q is not a number", attr, raw)
	}
	return d, nil
}

func parseIssueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalidFormat("missing Fecha attribute")
	}
	for _, layout := range issueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidFormat("Fecha %q is not a valid date", raw)
}

func invalidFormat(format string, args ...any) error {
	return ErrInvalidDocumentFormat.WithMessage(
		ErrInvalidDocumentFormat.Message + ": " + fmt.Sprintf(format, args...))
}
