package zpl

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
)

func testRecord() domain.WeightRecord {
	return domain.WeightRecord{
		Weight:    1250.5,
		Unit:      "g",
		Status:    domain.StatusStable,
		Target:    "T",
		Product:   "PROD001",
		Timestamp: time.Date(2024, 8, 25, 10, 30, 15, 0, time.UTC),
	}
}

func TestEngine_Select(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name     string
		weight   float64
		product  string
		explicit string
		want     string
		wantErr  error
	}{
		{name: "explicit standard", weight: 10, product: "PRM0001", explicit: "standard", want: TemplateStandard},
		{name: "explicit compact", weight: 500, product: "PROD001", explicit: "compact", want: TemplateCompact},
		{name: "explicit unknown", explicit: "fancy", wantErr: domain.ErrUnknownTemplate},
		{name: "prefix wins over weight", weight: 10, product: "PRM0001", want: TemplateDetailed},
		{name: "light weight is compact", weight: 49.9, product: "PROD001", want: TemplateCompact},
		{name: "threshold weight is standard", weight: 50.0, product: "PROD001", want: TemplateStandard},
		{name: "heavy weight is standard", weight: 1250.5, product: "PROD001", want: TemplateStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord()
			rec.Weight = tt.weight
			rec.Product = tt.product

			got, err := e.Select(rec, tt.explicit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_RenderStandard(t *testing.T) {
	e := NewEngine(DefaultConfig())

	doc, err := e.Render(testRecord(), "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if doc.Template != TemplateStandard {
		t.Errorf("Template = %q, want standard", doc.Template)
	}
	if doc.Commands[0] != "^XA" {
		t.Errorf("first command = %q, want ^XA", doc.Commands[0])
	}
	if last := doc.Commands[len(doc.Commands)-1]; last != "^XZ" {
		t.Errorf("last command = %q, want ^XZ", last)
	}

	for _, want := range []string{
		"^FD1250.5 g^FS",
		"^FDPROD001^FS",
		"^FD2024-08-25^FS",
		"^FDLINE01^FS",
		"^FDOK^FS",
	} {
		if !doc.Contains(want) {
			t.Errorf("standard label missing %q:\n%s", want, doc.Bytes())
		}
	}
}

func TestEngine_RenderCompact(t *testing.T) {
	e := NewEngine(DefaultConfig())
	rec := testRecord()
	rec.Weight = 42.0
	rec.Product = "PROD002"

	doc, err := e.Render(rec, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if doc.Template != TemplateCompact {
		t.Errorf("Template = %q, want compact", doc.Template)
	}
	if !doc.Contains("^FD42.0 g^FS") {
		t.Errorf("compact label missing weight:\n%s", doc.Bytes())
	}
	// Compact labels carry no product or date fields.
	if doc.Contains("PROD002") {
		t.Errorf("compact label should not carry the product:\n%s", doc.Bytes())
	}
	if doc.Contains("2024-08-25") {
		t.Errorf("compact label should not carry the date:\n%s", doc.Bytes())
	}
}

func TestEngine_RenderDetailed(t *testing.T) {
	e := NewEngine(DefaultConfig())
	rec := testRecord()
	rec.Product = "PRM9001"

	doc, err := e.Render(rec, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if doc.Template != TemplateDetailed {
		t.Errorf("Template = %q, want detailed", doc.Template)
	}
	if !doc.Contains("CHECKWEIGHER") {
		t.Errorf("detailed label missing header:\n%s", doc.Bytes())
	}
	if !doc.Contains("^BCN") {
		t.Errorf("detailed label missing barcode:\n%s", doc.Bytes())
	}
	if !doc.Contains("^FDPRM9001^FS") {
		t.Errorf("detailed label missing product:\n%s", doc.Bytes())
	}
}

func TestEngine_RenderDeterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	rec := testRecord()

	a, err := e.Render(rec, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, err := e.Render(rec, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(a.Bytes()) != string(b.Bytes()) {
		t.Error("identical records rendered differently")
	}
}

func TestEngine_StatusMarkers(t *testing.T) {
	tests := []struct {
		name           string
		status         domain.Status
		unstableMarker bool
		want           string
	}{
		{name: "stable", status: domain.StatusStable, want: "^FDOK^FS"},
		{name: "under", status: domain.StatusUnder, want: "^FDLOW^FS"},
		{name: "over", status: domain.StatusOver, want: "^FDEXCESS^FS"},
		{name: "unstable hidden", status: domain.StatusUnstable, want: ""},
		{name: "unstable shown", status: domain.StatusUnstable, unstableMarker: true, want: "^FDUNSTABLE^FS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.UnstableMarker = tt.unstableMarker
			e := NewEngine(cfg)

			rec := testRecord()
			rec.Status = tt.status

			doc, err := e.Render(rec, TemplateStandard)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if tt.want == "" {
				for _, marker := range []string{"OK", "LOW", "EXCESS", "UNSTABLE"} {
					if doc.Contains("^FD" + marker + "^FS") {
						t.Errorf("unexpected status marker %q:\n%s", marker, doc.Bytes())
					}
				}
				return
			}
			if !doc.Contains(tt.want) {
				t.Errorf("label missing status marker %q:\n%s", tt.want, doc.Bytes())
			}
		})
	}
}

func TestEngine_MissingFields(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name   string
		mutate func(*domain.WeightRecord)
	}{
		{name: "blank unit", mutate: func(r *domain.WeightRecord) { r.Unit = "  " }},
		{name: "blank product", mutate: func(r *domain.WeightRecord) { r.Product = "" }},
		{name: "zero timestamp", mutate: func(r *domain.WeightRecord) { r.Timestamp = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord()
			tt.mutate(&rec)
			if _, err := e.Render(rec, ""); !errors.Is(err, domain.ErrMissingField) {
				t.Errorf("Render error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestEngine_DPIScaling(t *testing.T) {
	rec := testRecord()

	base := NewEngine(DefaultConfig())
	baseDoc, err := base.Render(rec, TemplateStandard)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.DPI = 406
	doubled := NewEngine(cfg)
	doubledDoc, err := doubled.Render(rec, TemplateStandard)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Positions double with the density; the data payloads do not change.
	if !strings.Contains(string(baseDoc.Bytes()), "^FO50,40") {
		t.Errorf("203 dpi label missing base position:\n%s", baseDoc.Bytes())
	}
	if !strings.Contains(string(doubledDoc.Bytes()), "^FO100,80") {
		t.Errorf("406 dpi label missing scaled position:\n%s", doubledDoc.Bytes())
	}
	if !doubledDoc.Contains("^FD1250.5 g^FS") {
		t.Errorf("scaled label changed the payload:\n%s", doubledDoc.Bytes())
	}
}
