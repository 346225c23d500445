package privacy

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byCategory(items []Item) map[Category][]Item {
	out := make(map[Category][]Item)
	for _, it := range items {
		out[it.Category] = append(out[it.Category], it)
	}
	return out
}

func TestDetectText_PhoneAndID(t *testing.T) {
	text := "联系电话18612345678，身份证110101199003072316"
	items := DetectText(text)
	require.Len(t, items, 2)

	got := byCategory(items)
	require.Len(t, got[CategoryPhone], 1)
	require.Len(t, got[CategoryIDNumber], 1)

	phone := got[CategoryPhone][0]
	assert.Equal(t, "18612345678", phone.Value)
	assert.Equal(t, SourceText, phone.Source)
	assert.Equal(t, SpaceText, phone.Region.Space)
	assert.Equal(t, phone.Value, text[phone.Region.Start:phone.Region.End])

	id := got[CategoryIDNumber][0]
	assert.Equal(t, "110101199003072316", id.Value)
	assert.Equal(t, SourceText, id.Source)
	assert.InDelta(t, 1.0, id.Confidence, 1e-9)
}

func TestDetectText_Empty(t *testing.T) {
	assert.Empty(t, DetectText(""))
	assert.Empty(t, DetectText("本页没有任何敏感内容"))
}

func TestDetectText_InvalidBirthDate(t *testing.T) {
	// February 30th passes the regular expression but is not a calendar date.
	items := DetectText("身份证号 110101199002302316")
	assert.Empty(t, byCategory(items)[CategoryIDNumber])
}

func TestDetectText_ChecksumOption(t *testing.T) {
	text := "身份证 110101199003072317"
	assert.Len(t, byCategory(DetectText(text))[CategoryIDNumber], 1)
	assert.Empty(t, byCategory(DetectTextWithOptions(text, TextOptions{VerifyIDChecksum: true}))[CategoryIDNumber])

	ok := "身份证 110101199003072316"
	assert.Len(t, byCategory(DetectTextWithOptions(ok, TextOptions{VerifyIDChecksum: true}))[CategoryIDNumber], 1)
}

func TestDetectText_Address(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled with admin keyword", "住址：北京市东城区景山前街4号\n电话", "北京市东城区景山前街4号"},
		{"ascii colon", "地址: 浙江省杭州市西湖区", "浙江省杭州市西湖区"},
		{"household address", "户籍地址：河北省保定市某某村", "河北省保定市某某村"},
		{"no admin keyword", "地址：见附件清单内容", ""},
		{"too short", "地址：某处", ""},
		{"short after trimming", "地址：北京市   \n", ""},
		{"four runes", "地址：北京市区", "北京市区"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addrs := byCategory(DetectText(tt.text))[CategoryAddress]
			if tt.want == "" {
				assert.Empty(t, addrs)
				return
			}
			require.Len(t, addrs, 1)
			assert.Equal(t, tt.want, addrs[0].Value)
			assert.Equal(t, tt.want, tt.text[addrs[0].Region.Start:addrs[0].Region.End])
		})
	}
}

func TestDetectText_ContextualNumbers(t *testing.T) {
	t.Run("social security with keyword", func(t *testing.T) {
		items := byCategory(DetectText("社保个人编号：123456789012"))
		require.Len(t, items[CategorySocialSecurity], 1)
		assert.Equal(t, "123456789012", items[CategorySocialSecurity][0].Value)
		// 12 digits also satisfy the barcode length but no barcode keyword is near.
		assert.Empty(t, items[CategoryBarcodeNumber])
	})

	t.Run("no keyword", func(t *testing.T) {
		items := byCategory(DetectText("订单 123456789012"))
		assert.Empty(t, items[CategorySocialSecurity])
		assert.Empty(t, items[CategoryBarcodeNumber])
	})

	t.Run("barcode number", func(t *testing.T) {
		items := byCategory(DetectText("条形码 6901234567892"))
		require.Len(t, items[CategoryBarcodeNumber], 1)
		assert.Equal(t, "6901234567892", items[CategoryBarcodeNumber][0].Value)
	})

	t.Run("phone is not reclassified", func(t *testing.T) {
		items := byCategory(DetectText("社保联系电话 18612345678"))
		assert.Len(t, items[CategoryPhone], 1)
		assert.Empty(t, items[CategorySocialSecurity])
	})

	t.Run("keyword outside window", func(t *testing.T) {
		pad := ""
		for i := 0; i < 60; i++ {
			pad += "一"
		}
		items := byCategory(DetectText("社保" + pad + "123456789012"))
		assert.Empty(t, items[CategorySocialSecurity])
	})
}

func TestDetectText_FullWidthDigits(t *testing.T) {
	text := "电话：１８６１２３４５６７８"
	phones := byCategory(DetectText(text))[CategoryPhone]
	require.Len(t, phones, 1)
	assert.Equal(t, "１８６１２３４５６７８", phones[0].Value)
	assert.Equal(t, phones[0].Value, text[phones[0].Region.Start:phones[0].Region.End])
}

func TestDetectText_OverlapsKept(t *testing.T) {
	// A barcode keyword next to an ID number: both detectors are independent,
	// but the numeric detector skips runs that are already IDs.
	items := byCategory(DetectText("条码 110101199003072316"))
	assert.Len(t, items[CategoryIDNumber], 1)
	assert.Empty(t, items[CategoryBarcodeNumber])
}

func TestValidIDChecksum(t *testing.T) {
	assert.True(t, ValidIDChecksum("110101199003072316"))
	assert.False(t, ValidIDChecksum("110101199003072317"))
	assert.True(t, ValidIDChecksum("11010519491231002X"))
	assert.True(t, ValidIDChecksum("11010519491231002x"))
	assert.False(t, ValidIDChecksum("1101"))
}

func TestIsNameCandidate(t *testing.T) {
	assert.True(t, IsNameCandidate("张三"))
	assert.True(t, IsNameCandidate("欧阳娜娜"))
	assert.True(t, IsNameCandidate("张 三"))
	assert.False(t, IsNameCandidate("张"))
	assert.False(t, IsNameCandidate("张三李四王"))
	assert.False(t, IsNameCandidate("张三1"))
	assert.False(t, IsNameCandidate("ABCD"))
}

func TestWindow(t *testing.T) {
	s := "甲乙丙123丁戊己"
	start := len("甲乙丙")
	assert.Equal(t, "丙123丁", window(s, start, start+3, 1))
	assert.Equal(t, s, window(s, start, start+3, 10))
}

func TestFoldWidth_OffsetMap(t *testing.T) {
	f := foldWidth("a１b")
	assert.Equal(t, "a1b", f.text)
	assert.Equal(t, 0, f.original(0))
	assert.Equal(t, 1, f.original(1))
	assert.Equal(t, 4, f.original(2))
	assert.Equal(t, 5, f.original(3))
}

// idWithDate builds an 18-character ID number with a correct check character.
func idWithDate(year, month, day, seq int) string {
	body := fmt.Sprintf("110101%04d%02d%02d%03d", year, month, day, seq)
	sum := 0
	for i := 0; i < 17; i++ {
		sum += int(body[i]-'0') * idChecksumWeights[i]
	}
	return body + string(idChecksumChars[sum%11])
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// TestIDNumber_CalendarProperties checks that valid dates are always matched
// and impossible days are never matched.
func TestIDNumber_CalendarProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("real calendar dates are detected", prop.ForAll(
		func(year, month, day, seq int) bool {
			if day > daysIn(year, month) {
				day = daysIn(year, month)
			}
			id := idWithDate(year, month, day, seq)
			found := FindIDNumbers("号码"+id, true)
			return len(found) == 1 && found[0].Value == id
		},
		gen.IntRange(1900, 2099),
		gen.IntRange(1, 12),
		gen.IntRange(1, 31),
		gen.IntRange(0, 999),
	))

	properties.Property("impossible days are rejected", prop.ForAll(
		func(year, month, seq int) bool {
			day := daysIn(year, month) + 1
			if day > 31 {
				// Day 32 already fails the pattern itself.
				day = 31
				if daysIn(year, month) == 31 {
					return true
				}
			}
			id := idWithDate(year, month, day, seq)
			return len(FindIDNumbers(id, false)) == 0
		},
		gen.IntRange(1900, 2099),
		gen.IntRange(1, 12),
		gen.IntRange(0, 999),
	))

	properties.TestingRun(t)
}
