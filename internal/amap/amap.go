// Package amap builds AMap (Gaode) route-planning deep links.
//
// The link is a custom-scheme URL:
//
//	iosamap://path?sourceApplication=<app>&sid=&slat=<lat>&slon=<lon>&sname=当前位置
//	    &did=&dlat=<lat>&dlon=<lon>&dname=<name>&dev=0&t=0
//
// Coordinates are printed with six decimals. The text is percent-encoded only
// when it is judged to contain CJK ideographs; see [ContainsIdeograph] for the
// two scanning modes.
package amap

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf16"

	"github.com/couchcryptid/city-locator/internal/domain"
)

const (
	// CurrentLocationLabel is the source name shown by the map application.
	CurrentLocationLabel = "当前位置"

	// DefaultSourceApplication identifies the caller to the map application.
	DefaultSourceApplication = "applicationName"

	pathTemplate = "iosamap://path?sourceApplication=%s&sid=&slat=%f&slon=%f&sname=%s&did=&dlat=%f&dlon=%f&dname=%s&dev=0&t=0"

	// ASCII characters that are percent-encoded. Every byte >= 0x80 is
	// encoded as well; everything else passes through untouched.
	encodedASCII = "`#%^{}\"[]|\\<> "

	ideographLow  = 0x4e00
	ideographHigh = 0x9fff
)

// Options adjusts how the deep link is encoded.
type Options struct {
	// SourceApplication defaults to DefaultSourceApplication.
	SourceApplication string

	// ScanCodePoints compares each UTF-16 code unit against the ideograph
	// range. When false, the scan compares the code unit's index instead,
	// which only ever matches in texts longer than 0x4e00 code units.
	ScanCodePoints bool

	// AlwaysEncode encodes texts without ideographs instead of giving up.
	AlwaysEncode bool
}

// BuildPathURL formats a route from current to target and encodes it. It
// returns nil when the text is not encoded or does not parse as a URL.
func BuildPathURL(target, current domain.Coordinate, targetName string, opts Options) *url.URL {
	app := opts.SourceApplication
	if app == "" {
		app = DefaultSourceApplication
	}

	text := fmt.Sprintf(pathTemplate,
		app,
		current.Lat, current.Lon,
		CurrentLocationLabel,
		target.Lat, target.Lon,
		targetName,
	)

	encoded, ok := EncodeText(text, opts)
	if !ok {
		return nil
	}

	u, err := url.Parse(encoded)
	if err != nil {
		return nil
	}
	return u
}

// EncodeText percent-encodes text when it contains ideographs (or when
// opts.AlwaysEncode is set). ok is false when nothing was encoded.
func EncodeText(text string, opts Options) (encoded string, ok bool) {
	if !opts.AlwaysEncode && !ContainsIdeograph(text, opts.ScanCodePoints) {
		return "", false
	}
	return percentEncode(text), true
}

// ContainsIdeograph scans text as UTF-16 code units. With scanCodePoints it
// reports whether any unit lies strictly between 0x4e00 and 0x9fff. Without
// it, the position of the unit is tested against the lower bound instead of
// its value, matching the historical behavior of the deep-link helper.
func ContainsIdeograph(text string, scanCodePoints bool) bool {
	for i, unit := range utf16.Encode([]rune(text)) {
		lower := i
		if scanCodePoints {
			lower = int(unit)
		}
		if lower > ideographLow && unit < ideographHigh {
			return true
		}
	}
	return false
}

func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 && strings.IndexByte(encodedASCII, c) < 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
