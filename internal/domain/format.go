package domain

import "fmt"

// Format selects how a page is captured.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// ParseFormat converts a user supplied value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF, FormatPNG:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid format: %s", s)
	}
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}
