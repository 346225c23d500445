package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// contextWindow is the number of characters inspected on either side of a
// numeric run when looking for a context keyword.
const contextWindow = 50

// minAddressRunes is the shortest trimmed address value accepted.
const minAddressRunes = 4

// TextOptions tunes the text detectors.
type TextOptions struct {
	// VerifyIDChecksum additionally requires a valid ISO 7064 MOD 11-2 check
	// character on ID numbers.
	VerifyIDChecksum bool
}

// TextDetector finds one category of sensitive content in page text.
type TextDetector struct {
	Category Category
	find     func(text string, opts TextOptions) []Match
}

// Find runs the detector over already folded text.
func (d TextDetector) Find(text string, opts TextOptions) []Match {
	return d.find(text, opts)
}

// TextDetectors is the fixed set of detectors applied to page text, in
// reporting order.
var TextDetectors = []TextDetector{
	{Category: CategoryIDNumber, find: func(text string, opts TextOptions) []Match {
		return FindIDNumbers(text, opts.VerifyIDChecksum)
	}},
	{Category: CategoryPhone, find: func(text string, _ TextOptions) []Match {
		return FindPhones(text)
	}},
	{Category: CategoryAddress, find: func(text string, _ TextOptions) []Match {
		return findAddresses(text)
	}},
	{Category: CategorySocialSecurity, find: func(text string, _ TextOptions) []Match {
		return findContextualNumbers(text, socialSecurityPattern, SocialSecurityContext)
	}},
	{Category: CategoryBarcodeNumber, find: func(text string, _ TextOptions) []Match {
		return findContextualNumbers(text, barcodeNumberPattern, BarcodeNumberContext)
	}},
}

// DetectText scans page text with default options.
func DetectText(text string) []Item {
	return DetectTextWithOptions(text, TextOptions{})
}

// DetectTextWithOptions scans page text with every detector in TextDetectors.
// Matches across categories are not deduplicated. Item values and regions
// refer to the original (unfolded) text.
func DetectTextWithOptions(text string, opts TextOptions) []Item {
	if text == "" {
		return nil
	}
	folded := foldWidth(text)

	var items []Item
	for _, d := range TextDetectors {
		for _, m := range d.Find(folded.text, opts) {
			start, end := folded.original(m.Start), folded.original(m.End)
			items = append(items, Item{
				Category:   d.Category,
				Value:      text[start:end],
				Region:     TextRegion(start, end),
				Confidence: 1.0,
				Source:     SourceText,
			})
		}
	}
	return items
}

func findAddresses(text string) []Match {
	var out []Match
	for _, loc := range addressLabelPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		raw := text[start:end]
		value := strings.TrimSpace(raw)
		if utf8.RuneCountInString(value) < minAddressRunes || !AddressKeywords.Contains(value) {
			continue
		}
		start += strings.Index(raw, value)
		out = append(out, Match{Start: start, End: start + len(value), Value: value})
	}
	return out
}

func findContextualNumbers(text string, re *regexp.Regexp, ctx KeywordSet) []Match {
	var out []Match
	for _, m := range findAll(re, text) {
		if isPhoneOrID(m.Value) {
			continue
		}
		if !ctx.Contains(window(text, m.Start, m.End, contextWindow)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// window returns text[start:end] widened by n characters on each side.
func window(text string, start, end, n int) string {
	lo := start
	for i := 0; i < n && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < n && hi < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[hi:])
		hi += size
	}
	return text[lo:hi]
}

// foldedText is a width-folded copy of a string with a byte offset map back
// to the source.
type foldedText struct {
	text string
	// offsets[i] is the source offset of folded byte i; it has one extra
	// entry for the end of the string.
	offsets []int
}

func (f foldedText) original(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(f.offsets) {
		return f.offsets[len(f.offsets)-1]
	}
	return f.offsets[i]
}

// FoldWidth returns s with full-width digits, latin letters and punctuation
// replaced by their narrow forms.
func FoldWidth(s string) string { return foldWidth(s).text }

// foldWidth maps full-width forms (digits, latin letters, punctuation such as
// the ideographic colon) to their narrow equivalents.
func foldWidth(s string) foldedText {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		size := utf8.RuneLen(r)
		if r == utf8.RuneError {
			_, size = utf8.DecodeRuneInString(s[i:])
		}
		folded := s[i : i+size]
		if r >= 0xFF01 && r <= 0xFF5E {
			folded = width.Narrow.String(folded)
		}
		for j := 0; j < len(folded); j++ {
			offsets = append(offsets, i)
		}
		b.WriteString(folded)
	}
	offsets = append(offsets, len(s))
	return foldedText{text: b.String(), offsets: offsets}
}
