// Package theme holds the shared visual style of the chat TUI. All colors
// are adaptive so the UI stays readable on light and dark terminals; NO_COLOR
// is honored by lipgloss's own profile detection.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorError  = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorUser   = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
)

var (
	Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(ColorBorder).
		PaddingRight(1)
	ActiveItem = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	Muted      = lipgloss.NewStyle().Foreground(ColorMuted)
	UserLabel  = lipgloss.NewStyle().Bold(true).Foreground(ColorUser)
	ErrorText  = lipgloss.NewStyle().Foreground(ColorError)
)

// Symbols default to Unicode glyphs; InitSymbols downgrades them to ASCII on
// terminals that do not advertise UTF-8.
var (
	SymbolCursor   = "›"
	SymbolSelected = "●"
	SymbolBullet   = "•"
)

// InitSymbols inspects the locale and swaps in ASCII symbols when UTF-8
// output cannot be assumed. Call once before rendering.
func InitSymbols() {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LC_CTYPE")
	}
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if strings.Contains(strings.ToLower(lang), "utf-8") || strings.Contains(strings.ToLower(lang), "utf8") {
		return
	}
	SymbolCursor = ">"
	SymbolSelected = "*"
	SymbolBullet = "-"
}
