package excel

import (
	"log/slog"
	"strings"

	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"
)

// Format is a named cell format. The keys mirror the format properties of
// common spreadsheet writers so that existing style sheets translate
// directly. Properties left out of a configured format are taken from the
// default format of the same name; an explicit false or zero turns a default
// off.
type Format struct {
	Bold      *bool  `yaml:"bold"`
	Italic    *bool  `yaml:"italic"`
	FontColor string `yaml:"font_color"`
	BgColor   string `yaml:"bg_color"`
	// Border is the excelize border style (1 thin, 2 medium, 5 thick) applied
	// to all four sides. Zero means no border.
	Border    *int   `yaml:"border"`
	Align     string `yaml:"align"`
	NumFormat string `yaml:"num_format"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

// Names of the formats used by the workbook.
const (
	FormatHeader    = "header"
	FormatSubheader = "subheader"
	FormatValue     = "value"
	FormatPass      = "pass"
	FormatFail      = "fail"
	FormatOverall   = "overall"
)

func defaultFormats() map[string]Format {
	return map[string]Format{
		FormatHeader:    {Bold: boolPtr(true), Border: intPtr(1), Align: "center", BgColor: "#D9E1F2"},
		FormatSubheader: {Bold: boolPtr(true), Border: intPtr(1), Align: "center"},
		FormatValue:     {Border: intPtr(1)},
		FormatPass:      {Border: intPtr(1), Align: "center", FontColor: "#006100", BgColor: "#C6EFCE"},
		FormatFail:      {Border: intPtr(1), Align: "center", FontColor: "#9C0006", BgColor: "#FFC7CE"},
		FormatOverall:   {Bold: boolPtr(true), Border: intPtr(2)},
	}
}

// resolveFormats fills in whatever the configured formats leave unset from
// the defaults.
func resolveFormats(configured map[string]Format) map[string]Format {
	res := defaultFormats()
	for name, f := range configured {
		if def, ok := res[name]; ok {
			// Set pointers are kept as they are, even when pointing at false.
			_ = mergo.Merge(&f, def, mergo.WithoutDereference)
		}
		res[name] = f
	}
	return res
}

func (f Format) style() *excelize.Style {
	s := &excelize.Style{}
	bold := f.Bold != nil && *f.Bold
	italic := f.Italic != nil && *f.Italic
	if bold || italic || f.FontColor != "" {
		s.Font = &excelize.Font{Bold: bold, Italic: italic, Color: f.FontColor}
	}
	if f.BgColor != "" {
		s.Fill = excelize.Fill{Type: "pattern", Color: []string{f.BgColor}, Pattern: 1}
	}
	if f.Border != nil && *f.Border > 0 {
		s = mergeStyles(s, border(*f.Border, "left", "right", "top", "bottom"))
	}
	if f.Align != "" {
		s = mergeStyles(s, textAlignment(f.Align))
	}
	if f.NumFormat != "" {
		s = mergeStyles(s, customNumberFormat(f.NumFormat))
	}
	return s
}

func defaultStyle() *excelize.Style {
	return &excelize.Style{
		// solid white
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFFFFF"},
			Pattern: 1,
		},
	}
}

func customNumberFormat(format string) *excelize.Style {
	return &excelize.Style{
		CustomNumFmt: &format,
	}
}

func textAlignment(a string) *excelize.Style {
	return &excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: a,
			Vertical:   "center",
		},
	}
}

func border(style int, where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{
			Type:  w,
			Color: "#000000",
			Style: style,
		})
	}
	return s
}

func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}

// decimalFormat is the number format showing n decimals.
func decimalFormat(n int) string {
	if n <= 0 {
		return "0"
	}
	if n > 15 {
		n = 15
	}
	return "0." + strings.Repeat("0", n)
}

// styler hands out style ids, creating each combination of formats once.
type styler struct {
	xlsx    *excelize.File
	formats map[string]Format
	ids     map[string]int
}

func newStyler(xlsx *excelize.File, formats map[string]Format) *styler {
	return &styler{
		xlsx:    xlsx,
		formats: resolveFormats(formats),
		ids:     make(map[string]int),
	}
}

// id returns the style made of the named formats, later ones winning, with
// numFmt as number format if not empty.
func (s *styler) id(numFmt string, names ...string) int {
	key := strings.Join(names, "+") + "|" + numFmt
	if id, ok := s.ids[key]; ok {
		return id
	}

	parts := []*excelize.Style{defaultStyle()}
	for _, name := range names {
		parts = append(parts, s.formats[name].style())
	}
	if numFmt != "" {
		parts = append(parts, customNumberFormat(numFmt))
	}

	id, err := s.xlsx.NewStyle(mergeStyles(parts...))
	if err != nil {
		slog.Warn("Unusable cell format", "formats", names, "error", err)
	}
	s.ids[key] = id
	return id
}

func (s *styler) apply(sheet, from, to string, numFmt string, names ...string) {
	_ = s.xlsx.SetCellStyle(sheet, from, to, s.id(numFmt, names...))
}
