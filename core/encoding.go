package core

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// EncodingTag names the detected encoding (§4.B).
type EncodingTag string

const (
	EncUTF8      EncodingTag = "utf-8"
	EncUTF16LE   EncodingTag = "utf-16le"
	EncUTF16BE   EncodingTag = "utf-16be"
	EncUTF32LE   EncodingTag = "utf-32le"
	EncUTF32BE   EncodingTag = "utf-32be"
	EncLatin1    EncodingTag = "latin-1"
)

// EncodingInfo is the detection outcome, the `source` section of the
// Report contract (§6).
type EncodingInfo struct {
	Tag               EncodingTag
	Confidence        float64
	BOMPresent        bool
	ReplacementCount  int64
	bomLen            int
	decoder           *encoding.Decoder // nil for UTF-8 and UTF-32, which are decoded by hand
}

var boms = []struct {
	tag   EncodingTag
	bytes []byte
}{
	{EncUTF32LE, []byte{0xFF, 0xFE, 0x00, 0x00}}, // must precede UTF-16LE check
	{EncUTF32BE, []byte{0x00, 0x00, 0xFE, 0xFF}},
	{EncUTF8, []byte{0xEF, 0xBB, 0xBF}},
	{EncUTF16LE, []byte{0xFF, 0xFE}},
	{EncUTF16BE, []byte{0xFE, 0xFF}},
}

// DetectEncoding inspects the leading bytes of the first chunk (≥4 bytes
// required to distinguish UTF-32 BOMs from UTF-16 BOMs) per §4.B.
func DetectEncoding(first []byte) EncodingInfo {
	for _, b := range boms {
		if bytes.HasPrefix(first, b.bytes) {
			info := EncodingInfo{Tag: b.tag, Confidence: 1.0, BOMPresent: true, bomLen: len(b.bytes)}
			info.decoder = decoderFor(b.tag)
			return info
		}
	}

	budget := first
	if len(budget) > 64*1024 {
		budget = budget[:64*1024]
	}

	var highBit, nullEven, nullOdd, total int
	for i, c := range budget {
		total++
		if c&0x80 != 0 {
			highBit++
		}
		if c == 0 {
			if i%2 == 0 {
				nullEven++
			} else {
				nullOdd++
			}
		}
	}

	if total == 0 {
		return EncodingInfo{Tag: EncUTF8, Confidence: 0.95}
	}

	if highBit == 0 {
		return EncodingInfo{Tag: EncUTF8, Confidence: 0.95}
	}

	if utf8.Valid(budget) {
		return EncodingInfo{Tag: EncUTF8, Confidence: 0.90}
	}

	// Alternating nulls at even/odd positions suggests UTF-16 without a BOM.
	if nullEven > total/4 && nullEven > nullOdd*4 {
		return EncodingInfo{Tag: EncUTF16BE, Confidence: 0.85, decoder: decoderFor(EncUTF16BE)}
	}
	if nullOdd > total/4 && nullOdd > nullEven*4 {
		return EncodingInfo{Tag: EncUTF16LE, Confidence: 0.85, decoder: decoderFor(EncUTF16LE)}
	}

	return EncodingInfo{Tag: EncLatin1, Confidence: 0.50, decoder: decoderFor(EncLatin1)}
}

func decoderFor(tag EncodingTag) *encoding.Decoder {
	switch tag {
	case EncUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	case EncUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	case EncLatin1:
		return charmap.ISO8859_1.NewDecoder()
	default:
		return nil
	}
}

// ScalarDecoder turns the raw byte stream into a Unicode scalar stream,
// replacing malformed sequences with U+FFFD and counting them (§4.B). For
// UTF-8 and UTF-32 we decode by hand (x/text has no UTF-32 decoder); for
// UTF-16/Latin-1 we delegate to golang.org/x/text/encoding, stripping any
// detected BOM first.
type ScalarDecoder struct {
	info             EncodingInfo
	pending          []byte
	replacementCount int64
}

func NewScalarDecoder(info EncodingInfo) *ScalarDecoder {
	return &ScalarDecoder{info: info}
}

// Feed decodes one chunk of raw bytes (with any leading BOM already
// stripped by the caller on the very first chunk) into runes, returning
// the decoded string and retaining any incomplete trailing sequence for
// the next call.
func (d *ScalarDecoder) Feed(raw []byte) string {
	buf := append(d.pending, raw...)
	d.pending = nil

	switch d.info.Tag {
	case EncUTF32LE, EncUTF32BE:
		return d.feedUTF32(buf)
	case EncUTF8:
		return d.feedUTF8(buf)
	default:
		if d.info.decoder == nil {
			return d.feedUTF8(buf)
		}
		if d.info.Tag == EncUTF16LE || d.info.Tag == EncUTF16BE {
			// hold back an odd trailing byte or a trailing high surrogate
			n := len(buf) - len(buf)%2
			if n >= 2 {
				hi := buf[n-2]
				if d.info.Tag == EncUTF16LE {
					hi = buf[n-1]
				}
				if hi >= 0xD8 && hi <= 0xDB {
					n -= 2
				}
			}
			d.pending = append(d.pending, buf[n:]...)
			buf = buf[:n]
		}
		decoded, err := d.info.decoder.String(string(buf))
		if err != nil {
			// best-effort: fall back to treating the chunk as already-decoded
			// text rather than aborting the stream (decoding is never fatal).
			decoded = string(buf)
		}
		for _, r := range decoded {
			if r == utf8.RuneError {
				d.replacementCount++
			}
		}
		return decoded
	}
}

func (d *ScalarDecoder) feedUTF8(buf []byte) string {
	var sb []rune
	i := 0
	for i < len(buf) {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size <= 1 {
			// could be an incomplete trailing sequence
			if len(buf)-i < 4 && !utf8.FullRune(buf[i:]) {
				d.pending = append(d.pending, buf[i:]...)
				break
			}
			d.replacementCount++
			sb = append(sb, utf8.RuneError)
			i++
			continue
		}
		sb = append(sb, r)
		i += size
	}
	return string(sb)
}

func (d *ScalarDecoder) feedUTF32(buf []byte) string {
	little := d.info.Tag == EncUTF32LE
	n := len(buf) - (len(buf) % 4)
	var sb []rune
	for i := 0; i < n; i += 4 {
		var v uint32
		if little {
			v = uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24
		} else {
			v = uint32(buf[i+3]) | uint32(buf[i+2])<<8 | uint32(buf[i+1])<<16 | uint32(buf[i])<<24
		}
		r := rune(v)
		if v > utf8.MaxRune || (v >= 0xD800 && v <= 0xDFFF) {
			d.replacementCount++
			r = utf8.RuneError
		}
		sb = append(sb, r)
	}
	d.pending = append(d.pending, buf[n:]...)
	return string(sb)
}

// ReplacementCount returns the running count of replaced invalid sequences.
func (d *ScalarDecoder) ReplacementCount() int64 {
	return d.replacementCount
}

// BOMLen reports how many leading bytes of the very first chunk are the
// detected BOM and should be stripped before decoding.
func (info EncodingInfo) BOMLen() int { return info.bomLen }
