package banner

import (
	"crudload/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
                     _ _                 _
  ___ _ __ _   _  __| | | ___   __ _  __| |
 / __| '__| | | |/ _' | |/ _ \ / _' |/ _' |
| (__| |  | |_| | (_| | | (_) | (_| | (_| |
 \___|_|   \__,_|\__,_|_|\___/ \__,_|\__,_|`

	return "\n" + style.Render(ascii) + "\n"
}
