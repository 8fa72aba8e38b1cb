package zpl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/packbridge/scalebridge/internal/domain"
)

// Template names accepted by the engine.
const (
	TemplateStandard = "standard"
	TemplateCompact  = "compact"
	TemplateDetailed = "detailed"
)

// Config holds label geometry and template selection tunables.
type Config struct {
	// LabelWidth and LabelHeight are the physical label size in inches.
	LabelWidth  float64
	LabelHeight float64

	// DPI is the printer head density in dots per inch. Field positions
	// are authored for 203 dpi and scaled proportionally.
	DPI int

	// DetailedPrefix selects the detailed template for products whose
	// code starts with this prefix. Empty disables the inference.
	DetailedPrefix string

	// CompactThreshold selects the compact template for weights below it.
	CompactThreshold float64

	// UnstableMarker, when true, prints a marker for unstable weighments
	// instead of leaving the status area blank.
	UnstableMarker bool

	// LineNumber identifies the packaging line on standard and detailed
	// labels.
	LineNumber string
}

// DefaultConfig returns the geometry of a 4in x 3in label at 203 dpi.
func DefaultConfig() Config {
	return Config{
		LabelWidth:       4,
		LabelHeight:      3,
		DPI:              203,
		DetailedPrefix:   "PRM",
		CompactThreshold: 50.0,
		LineNumber:       "LINE01",
	}
}

// Engine renders weight records into label documents.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given configuration. Zero-valued
// geometry fields fall back to the defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.LabelWidth <= 0 {
		cfg.LabelWidth = def.LabelWidth
	}
	if cfg.LabelHeight <= 0 {
		cfg.LabelHeight = def.LabelHeight
	}
	if cfg.LineNumber == "" {
		cfg.LineNumber = def.LineNumber
	}
	return &Engine{cfg: cfg}
}

// Select resolves the template for a record. An explicit name wins and
// must be known; otherwise the template is inferred from the record.
func (e *Engine) Select(rec domain.WeightRecord, explicit string) (string, error) {
	if explicit != "" {
		switch explicit {
		case TemplateStandard, TemplateCompact, TemplateDetailed:
			return explicit, nil
		default:
			return "", fmt.Errorf("%w: %q", domain.ErrUnknownTemplate, explicit)
		}
	}
	if e.cfg.DetailedPrefix != "" && strings.HasPrefix(rec.Product, e.cfg.DetailedPrefix) {
		return TemplateDetailed, nil
	}
	if rec.Weight < e.cfg.CompactThreshold {
		return TemplateCompact, nil
	}
	return TemplateStandard, nil
}

// Render produces the label document for rec using the named template,
// or the inferred one when name is empty. Identical inputs always yield
// byte-identical documents.
func (e *Engine) Render(rec domain.WeightRecord, name string) (domain.Document, error) {
	tmpl, err := e.Select(rec, name)
	if err != nil {
		return domain.Document{}, err
	}
	if err := requireFields(rec); err != nil {
		return domain.Document{}, err
	}

	var cmds []string
	switch tmpl {
	case TemplateStandard:
		cmds = e.standard(rec)
	case TemplateCompact:
		cmds = e.compact(rec)
	case TemplateDetailed:
		cmds = e.detailed(rec)
	}
	return domain.Document{Template: tmpl, Commands: cmds}, nil
}

// requireFields rejects records missing attributes every template needs.
func requireFields(rec domain.WeightRecord) error {
	switch {
	case strings.TrimSpace(rec.Unit) == "":
		return fmt.Errorf("%w: unit", domain.ErrMissingField)
	case strings.TrimSpace(rec.Product) == "":
		return fmt.Errorf("%w: product", domain.ErrMissingField)
	case rec.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp", domain.ErrMissingField)
	}
	return nil
}

// formatWeight renders the weight with one decimal, the precision the
// scale reports in continuous mode.
func formatWeight(rec domain.WeightRecord) string {
	return strconv.FormatFloat(rec.Weight, 'f', 1, 64) + " " + rec.Unit
}

// formatDate keeps the date portion only; time of day is discarded.
func formatDate(rec domain.WeightRecord) string {
	return rec.Timestamp.Format("2006-01-02")
}

// dot scales a position authored for 203 dpi to the configured density.
func (e *Engine) dot(v int) int {
	return v * e.cfg.DPI / 203
}

// field emits one positioned text field as a single command line.
func (e *Engine) field(x, y, size int, data string) string {
	return fmt.Sprintf("^FO%d,%d^A0N,%d,%d^FD%s^FS",
		e.dot(x), e.dot(y), e.dot(size), e.dot(size), data)
}

func (e *Engine) standard(rec domain.WeightRecord) []string {
	cmds := []string{
		"^XA",
		"^LH0,0",
		e.field(50, 40, 70, formatWeight(rec)),
		e.field(50, 130, 35, rec.Product),
		e.field(50, 180, 28, formatDate(rec)),
		e.field(50, 230, 28, e.cfg.LineNumber),
	}
	cmds = e.appendStatus(cmds, rec.Status, 420, 40, 90)
	return append(cmds, "^XZ")
}

func (e *Engine) compact(rec domain.WeightRecord) []string {
	cmds := []string{
		"^XA",
		"^LH0,0",
		e.field(30, 30, 60, formatWeight(rec)),
	}
	cmds = e.appendStatus(cmds, rec.Status, 330, 30, 45)
	return append(cmds, "^XZ")
}

func (e *Engine) detailed(rec domain.WeightRecord) []string {
	cmds := []string{
		"^XA",
		"^LH0,0",
		e.field(30, 20, 28, "CHECKWEIGHER"),
		e.field(30, 60, 80, formatWeight(rec)),
		e.field(30, 160, 35, rec.Product),
		e.field(30, 210, 28, formatDate(rec)),
		e.field(30, 260, 28, e.cfg.LineNumber),
	}
	cmds = e.appendStatus(cmds, rec.Status, 520, 60, 90)
	cmds = append(cmds, fmt.Sprintf("^FO%d,%d^BCN,%d,Y,N,N^FD%s^FS",
		e.dot(30), e.dot(320), e.dot(80), rec.Product))
	return append(cmds, "^XZ")
}

// appendStatus adds the status marker fragment, if any, at the given
// anchor position.
func (e *Engine) appendStatus(cmds []string, s domain.Status, x, y, size int) []string {
	text := e.statusText(s)
	if text == "" {
		return cmds
	}
	return append(cmds, e.field(x, y, size, text))
}

// statusText is the total mapping from the status enum to its label
// marker. Keep all enum members listed here; adding a status is a
// one-line change.
func (e *Engine) statusText(s domain.Status) string {
	text, ok := statusMarkers[s]
	if !ok {
		return ""
	}
	if s == domain.StatusUnstable && !e.cfg.UnstableMarker {
		return ""
	}
	return text
}

var statusMarkers = map[domain.Status]string{
	domain.StatusStable:   "OK",
	domain.StatusUnder:    "LOW",
	domain.StatusOver:     "EXCESS",
	domain.StatusUnstable: "UNSTABLE",
}
