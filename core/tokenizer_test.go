package core

import "testing"

func collectRecords(pc ParseContext, input string) ([]*Record, []Diagnostic) {
	var recs []*Record
	var diags []Diagnostic
	tok := NewTokenizer(pc, func(r *Record) { recs = append(recs, r) }, func(d Diagnostic) { diags = append(diags, d) })
	tok.Feed(input)
	tok.Close()
	return recs, diags
}

func commaPC() ParseContext {
	return ParseContext{Delimiter: ',', Quote: '"', HasQuote: true}
}

func TestTokenizerBasicCSV(t *testing.T) {
	recs, _ := collectRecords(commaPC(), "a,b,c\n1,2,3\n")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].NumFields() != 3 || recs[0].Field(0) != "a" || recs[0].Field(2) != "c" {
		t.Errorf("header record wrong: %v %v %v", recs[0].Field(0), recs[0].Field(1), recs[0].Field(2))
	}
}

func TestTokenizerCRLFNoSpuriousRecords(t *testing.T) {
	recs, _ := collectRecords(commaPC(), "a,b\r\nc,d\r\ne,f\r\n")
	if len(recs) != 3 {
		t.Fatalf("got %d records, want exactly 3 (CRLF must not emit an extra empty record per line)", len(recs))
	}
	for i, r := range recs {
		if r.NumFields() != 2 {
			t.Errorf("record %d has %d fields, want 2", i, r.NumFields())
		}
	}
}

func TestTokenizerBareCR(t *testing.T) {
	recs, _ := collectRecords(commaPC(), "a,b\rc,d\r")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
}

func TestTokenizerQuotedFieldWithEmbeddedDelimiter(t *testing.T) {
	recs, _ := collectRecords(commaPC(), `a,"b,c",d`+"\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].NumFields() != 3 {
		t.Fatalf("got %d fields, want 3", recs[0].NumFields())
	}
	if recs[0].Field(1) != "b,c" {
		t.Errorf("quoted field = %q, want %q", recs[0].Field(1), "b,c")
	}
}

func TestTokenizerEscapedQuotes(t *testing.T) {
	recs, _ := collectRecords(commaPC(), `a,"he said ""hi""",c`+"\n")
	if recs[0].Field(1) != `he said "hi"` {
		t.Errorf("unescaped field = %q, want %q", recs[0].Field(1), `he said "hi"`)
	}
}

func TestTokenizerUnterminatedQuoteDiagnostic(t *testing.T) {
	recs, diags := collectRecords(commaPC(), `a,"unterminated`)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (flush at EOF)", len(recs))
	}
	found := false
	for _, d := range diags {
		if d.Kind == DiagUnterminatedQuote {
			found = true
		}
	}
	if !found {
		t.Error("expected an unterminated_quote diagnostic")
	}
}

func TestTokenizerMalformedColumnCount(t *testing.T) {
	pc := commaPC()
	var recs []*Record
	tok := NewTokenizer(pc, func(r *Record) { recs = append(recs, r) }, nil)
	tok.SetHeaderColumnCount(3)
	tok.Feed("1,2,3\n1,2,3,4\n1,2\n")
	tok.Close()
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].Malformed {
		t.Error("first record should not be malformed")
	}
	if !recs[1].Malformed {
		t.Error("second record (4 fields) should be malformed")
	}
	if !recs[2].Malformed {
		t.Error("third record (2 fields) should be malformed")
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	recs, _ := collectRecords(commaPC(), "")
	if len(recs) != 0 {
		t.Errorf("got %d records for empty input, want 0", len(recs))
	}
}

func TestTokenizerChunkBoundarySplit(t *testing.T) {
	pc := commaPC()
	var recs []*Record
	tok := NewTokenizer(pc, func(r *Record) { recs = append(recs, r) }, nil)
	// split a record mid-field across two Feed calls
	tok.Feed("ab")
	tok.Feed("c,def\n")
	tok.Close()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Field(0) != "abc" {
		t.Errorf("field split across chunks = %q, want abc", recs[0].Field(0))
	}
}
