package refcode

import (
	"testing"
	"time"
)

var fixedDate = time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)

func TestGenerateSegments(t *testing.T) {
	tests := []struct {
		name  string
		email string
		phone string
		ref   string
		seq   int
		want  string
	}{
		{
			name:  "second organic signup of the day",
			email: "jane@x.com",
			phone: "08123456789",
			ref:   "-",
			seq:   2,
			want:  "JA892083126" + "2",
		},
		{
			name:  "referred applicant gets flag 1",
			email: "fuad@gmail.com",
			phone: "082338792512",
			ref:   "fu3312",
			seq:   1,
			want:  "FU121083126" + "1",
		},
		{
			name:  "short email padded with X",
			email: "a@1.2",
			phone: "555",
			ref:   "",
			seq:   3,
			want:  "AX552083126" + "3",
		},
		{
			name:  "single digit phone left-padded",
			email: "bob@mail.com",
			phone: "7",
			ref:   "-",
			seq:   1,
			want:  "BO072083126" + "1",
		},
		{
			name:  "sequence not zero padded",
			email: "carol@mail.com",
			phone: "08999",
			ref:   "-",
			seq:   12,
			want:  "CA992083126" + "12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.email, tt.phone, tt.ref, tt.seq, fixedDate)
			if got != tt.want {
				t.Fatalf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateDistinctTuplesDistinctCodes(t *testing.T) {
	type tuple struct {
		email, phone, ref string
		seq               int
	}
	tuples := []tuple{
		{"jane@x.com", "08123456789", "-", 1},
		{"jane@x.com", "08123456789", "-", 2},
		{"jane@x.com", "08123456789", "ab12", 1},
		{"jane@x.com", "08123456780", "-", 1},
		{"mike@x.com", "08123456789", "-", 1},
	}

	seen := make(map[string]tuple, len(tuples))
	for _, tp := range tuples {
		code := Generate(tp.email, tp.phone, tp.ref, tp.seq, fixedDate)
		if prev, ok := seen[code]; ok {
			t.Fatalf("collision: %+v and %+v both produced %q", prev, tp, code)
		}
		seen[code] = tp
	}
}

func TestGenerateDateSegment(t *testing.T) {
	jan := time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)
	got := Generate("jane@x.com", "08123456789", "-", 1, jan)
	want := "JA892" + "010227" + "1"
	if got != want {
		t.Fatalf("Generate() = %q, want %q", got, want)
	}
}
