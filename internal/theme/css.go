package theme

import (
	_ "embed"
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/petervdpas/sudoku/internal/state"
)

var log = logging.Logger("sudoku/theme")

const mimeCSS = "text/css"

//go:embed base.css
var baseCSS []byte

var (
	m        = newMinifier()
	minified = minifyOrRaw("base.css", baseCSS)
)

func newMinifier() *minify.M {
	mm := minify.New()
	mm.AddFunc(mimeCSS, css.Minify)
	return mm
}

func minifyOrRaw(name string, raw []byte) []byte {
	out, err := m.Bytes(mimeCSS, raw)
	if err != nil {
		log.Warnw("minify failed, using original", "name", name, "err", err)
		return raw
	}
	return out
}

// CSS renders the custom properties for m followed by the base sheet.
// System appearance emits both variants behind prefers-color-scheme.
func CSS(md state.Mode) string {
	var b strings.Builder
	switch md.Scheme() {
	case state.SchemeSystem:
		light, dark := md, md
		light.DarkMode, light.UseSystemAppearance = false, false
		dark.DarkMode, dark.UseSystemAppearance = true, false
		writeRoot(&b, light, "light dark")
		b.WriteString("@media (prefers-color-scheme: dark) {\n")
		writeRoot(&b, dark, "")
		b.WriteString("}\n")
	case state.SchemeDark:
		writeRoot(&b, md, "dark")
	default:
		writeRoot(&b, md, "light")
	}

	vars := minifyOrRaw("variables", []byte(b.String()))
	return string(vars) + string(minified)
}

func writeRoot(b *strings.Builder, md state.Mode, scheme string) {
	t := Resolve(md)
	b.WriteString(":root {\n")
	if scheme != "" {
		fmt.Fprintf(b, "  color-scheme: %s;\n", scheme)
	}
	fmt.Fprintf(b, "  --board: %s;\n", t.Board)
	fmt.Fprintf(b, "  --background: %s;\n", t.Background)
	fmt.Fprintf(b, "  --card: %s;\n", t.Card)
	fmt.Fprintf(b, "  --text: %s;\n", t.Text)
	b.WriteString("}\n")
}
