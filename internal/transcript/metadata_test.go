package transcript_test

import (
	"testing"

	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
)

const preambleWindow = `ACME INDUSTRIES LIMITED
Q3 FY2026 Earnings Conference Call
January 28, 2026

Management:
Ashok Sharma — Chief Financial Officer
Priya Mehta — Chief Executive Officer
Rahul Verma — Analyst`

func TestExtract_CompanyAndDate(t *testing.T) {
	t.Parallel()

	e := transcript.NewMetadataExtractor(namematch.New())

	md := e.Extract(preambleWindow)

	if md.Company != "ACME INDUSTRIES LIMITED" {
		t.Errorf("company = %q", md.Company)
	}
	if md.Date != "2026-01-28" {
		t.Errorf("date = %q, want 2026-01-28", md.Date)
	}
}

func TestExtract_Participants(t *testing.T) {
	t.Parallel()

	e := transcript.NewMetadataExtractor(namematch.New())

	md := e.Extract(preambleWindow)

	if len(md.Participants) != 3 {
		t.Fatalf("got %d participants, want 3: %+v", len(md.Participants), md.Participants)
	}
	if md.Participants[0].Name != "Ashok Sharma" || md.Participants[0].Designation != "Chief Financial Officer" {
		t.Errorf("first participant = %+v", md.Participants[0])
	}
	if md.Participants[2].Designation != "Analyst" {
		t.Errorf("analyst designation = %q", md.Participants[2].Designation)
	}
}

// TestExtract_DesignationVariants verifies noisy designation strings resolve
// to the canonical vocabulary entries.
func TestExtract_DesignationVariants(t *testing.T) {
	t.Parallel()

	e := transcript.NewMetadataExtractor(namematch.New())

	md := e.Extract("Ravi Kumar — CFO\nNina Patel — Managing Director")

	if len(md.Participants) != 2 {
		t.Fatalf("got %d participants, want 2: %+v", len(md.Participants), md.Participants)
	}
	if md.Participants[0].Designation != "Chief Financial Officer" {
		t.Errorf("CFO resolved to %q", md.Participants[0].Designation)
	}
	if md.Participants[1].Designation != "Managing Director" {
		t.Errorf("MD resolved to %q", md.Participants[1].Designation)
	}
}

func TestExtract_DayFirstDate(t *testing.T) {
	t.Parallel()

	e := transcript.NewMetadataExtractor(namematch.New())

	md := e.Extract("Earnings call held on 28th January 2026 for analysts.")
	if md.Date != "2026-01-28" {
		t.Errorf("date = %q, want 2026-01-28", md.Date)
	}
}

// TestExtract_UnknownFields verifies nothing is fabricated when the window
// carries no recognisable metadata.
func TestExtract_UnknownFields(t *testing.T) {
	t.Parallel()

	e := transcript.NewMetadataExtractor(namematch.New())

	md := e.Extract("thank you all for joining today")

	if md.Date != transcript.UnknownField {
		t.Errorf("date = %q, want unknown", md.Date)
	}
	if len(md.Participants) != 0 {
		t.Errorf("participants fabricated: %+v", md.Participants)
	}
}

func TestIsManagementDesignation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		designation string
		want        bool
	}{
		{"Chief Financial Officer", true},
		{"Managing Director", true},
		{"Analyst", false},
		{"Moderator", false},
		{"unknown", false},
	}
	for _, tc := range cases {
		if got := transcript.IsManagementDesignation(tc.designation); got != tc.want {
			t.Errorf("IsManagementDesignation(%q) = %v, want %v", tc.designation, got, tc.want)
		}
	}
}
