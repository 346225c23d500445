package privacy

import (
	"regexp"
	"strings"
	"time"
)

var (
	// idNumberPattern matches 18-character resident ID numbers: 6-digit region,
	// 8-digit birth date, 3-digit sequence and a check character.
	idNumberPattern = regexp.MustCompile(`\b\d{6}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:[0-2]\d|3[01])\d{3}[\dXx]\b`)
	idNumberExact   = regexp.MustCompile(`^\d{6}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:[0-2]\d|3[01])\d{3}[\dXx]$`)

	phonePattern = regexp.MustCompile(`\b1[3-9]\d{9}\b`)
	phoneExact   = regexp.MustCompile(`^1[3-9]\d{9}$`)

	addressLabelPattern = regexp.MustCompile(`(?:住址|地址|户籍地址)[:：]\s*([^\n\r]{4,50})`)

	socialSecurityPattern = regexp.MustCompile(`\b\d{9,20}\b`)
	barcodeNumberPattern  = regexp.MustCompile(`\b\d{10,32}\b`)

	nameCandidatePattern = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}]{2,4}$`)
)

// KeywordSet is a named list of literal keywords matched by substring.
type KeywordSet struct {
	Name     string
	Keywords []string
}

// Contains reports whether text contains any keyword of the set.
func (ks KeywordSet) Contains(text string) bool {
	for _, kw := range ks.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var (
	// AddressKeywords are administrative-division and street markers that must
	// appear in a labelled address value.
	AddressKeywords = KeywordSet{
		Name:     "address",
		Keywords: []string{"省", "市", "区", "县", "镇", "乡", "村", "街道", "路", "号", "栋", "单元"},
	}

	SocialSecurityContext = KeywordSet{
		Name:     "social_security",
		Keywords: []string{"社保", "养老", "个人编号", "社会保障"},
	}

	BarcodeNumberContext = KeywordSet{
		Name:     "barcode_number",
		Keywords: []string{"条形码", "条码", "码号"},
	}

	// IdentityKeywords gate name detection on OCR output.
	IdentityKeywords = KeywordSet{
		Name:     "identity",
		Keywords: []string{"姓名", "身份证", "证书", "持证人", "申请人"},
	}

	// CodeKeywords gate QR and barcode decoding on OCR output.
	CodeKeywords = KeywordSet{
		Name:     "code",
		Keywords: []string{"证书", "身份证", "持证人", "二维码", "条码", "验证码"},
	}
)

// Match is a located pattern hit in a string.
type Match struct {
	Start int
	End   int
	Value string
}

// FindIDNumbers returns ID number matches whose embedded birth date is a real
// calendar date. With verifyChecksum the trailing check character must also
// satisfy ISO 7064 MOD 11-2.
func FindIDNumbers(text string, verifyChecksum bool) []Match {
	var out []Match
	for _, loc := range idNumberPattern.FindAllStringIndex(text, -1) {
		v := text[loc[0]:loc[1]]
		if !ValidBirthDate(v) {
			continue
		}
		if verifyChecksum && !ValidIDChecksum(v) {
			continue
		}
		out = append(out, Match{Start: loc[0], End: loc[1], Value: v})
	}
	return out
}

// FindPhones returns mobile phone number matches.
func FindPhones(text string) []Match {
	return findAll(phonePattern, text)
}

// ValidBirthDate reports whether positions 7-14 of an 18-character ID number
// form a valid yyyymmdd date.
func ValidBirthDate(id string) bool {
	if len(id) != 18 {
		return false
	}
	_, err := time.Parse("20060102", id[6:14])
	return err == nil
}

var (
	idChecksumWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	idChecksumChars   = "10X98765432"
)

// ValidIDChecksum verifies the ISO 7064 MOD 11-2 check character.
func ValidIDChecksum(id string) bool {
	if len(id) != 18 {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * idChecksumWeights[i]
	}
	want := idChecksumChars[sum%11]
	got := id[17]
	if got == 'x' {
		got = 'X'
	}
	return got == want
}

// IsNameCandidate reports whether an OCR fragment looks like a personal name:
// 2-4 CJK ideographs and nothing else once whitespace is removed.
func IsNameCandidate(text string) bool {
	return nameCandidatePattern.MatchString(stripSpace(text))
}

// isPhoneOrID reports whether a numeric run is already covered by the phone or
// ID number pattern.
func isPhoneOrID(num string) bool {
	return phoneExact.MatchString(num) || idNumberExact.MatchString(num)
}

func findAll(re *regexp.Regexp, text string) []Match {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Match{Start: loc[0], End: loc[1], Value: text[loc[0]:loc[1]]})
	}
	return out
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
