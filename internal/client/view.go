package client

import (
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"
)

var authBanner = buildAuthBanner()

type styleSet struct {
	title        lipgloss.Style
	label        lipgloss.Style
	value        lipgloss.Style
	selected     lipgloss.Style
	unreadMark   lipgloss.Style
	sender       lipgloss.Style
	ownSender    lipgloss.Style
	timestamp    lipgloss.Style
	banner       lipgloss.Style
	hint         lipgloss.Style
	formActive   lipgloss.Style
	formInactive lipgloss.Style
}

func buildStyles() styleSet {
	base := lipgloss.NewStyle()
	return styleSet{
		title:        base.Foreground(lipgloss.Color("13")).Bold(true),
		label:        base.Foreground(lipgloss.Color("8")),
		value:        base.Foreground(lipgloss.Color("15")),
		selected:     base.Foreground(lipgloss.Color("14")).Bold(true),
		unreadMark:   base.Foreground(lipgloss.Color("11")).Bold(true),
		sender:       base.Foreground(lipgloss.Color("10")).Bold(true),
		ownSender:    base.Foreground(lipgloss.Color("12")).Bold(true),
		timestamp:    base.Foreground(lipgloss.Color("8")),
		banner:       base.Foreground(lipgloss.Color("9")).Bold(true),
		hint:         base.Foreground(lipgloss.Color("8")),
		formActive:   base.Foreground(lipgloss.Color("14")),
		formInactive: base.Foreground(lipgloss.Color("7")),
	}
}

// View renders the terminal UI.
func (a *App) View() string {
	var b strings.Builder

	switch a.screen {
	case screenAuth:
		b.WriteString(a.renderAuth())
	case screenRooms:
		b.WriteString(a.renderRooms())
	case screenCreateRoom:
		b.WriteString(a.renderCreateRoom())
	case screenChat:
		b.WriteString(a.renderChat())
	}

	if a.banner != "" {
		b.WriteString("\n\n")
		b.WriteString(a.styles.banner.Render(a.banner))
		b.WriteString("\n")
		b.WriteString(a.styles.hint.Render("press Enter to continue"))
	}
	return b.String()
}

func (a *App) renderAuth() string {
	action := "Sign in"
	if a.registering {
		action = "Register"
	}

	var b strings.Builder
	b.WriteString(authBanner)
	b.WriteString("\n\n")
	b.WriteString(a.styles.title.Render(action))
	b.WriteString("\n\n")
	b.WriteString(a.styles.label.Render("Username") + "\n")
	b.WriteString(a.username.View() + "\n\n")
	b.WriteString(a.styles.label.Render("Password") + "\n")
	b.WriteString(a.password.View() + "\n\n")
	b.WriteString(a.styles.hint.Render("Enter submit | Tab switch field | Ctrl+R toggle sign-in/register | Ctrl+C quit"))
	return b.String()
}

func (a *App) renderRooms() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Rooms"))
	if s, ok := a.session.(authenticated); ok {
		b.WriteString("  " + a.styles.label.Render("signed in as") + " " + a.styles.value.Render(s.Profile.Name))
	}
	b.WriteString("\n\n")

	if len(a.rooms) == 0 {
		b.WriteString(a.styles.hint.Render("No rooms yet. Press Ctrl+R to create one."))
	}
	for i, room := range a.rooms {
		marker := "  "
		if a.unread[room.ID] {
			marker = a.styles.unreadMark.Render("* ")
		}
		line := marker + room.Name
		if i == a.selected {
			line = a.styles.selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(a.styles.hint.Render("Enter open | Up/Down select | r refresh | Ctrl+R new room | Esc sign out"))
	return b.String()
}

func (a *App) renderCreateRoom() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render("New room"))
	b.WriteString("\n\n")
	b.WriteString(a.styles.label.Render("Name") + "\n")
	b.WriteString(a.roomName.View() + "\n\n")
	b.WriteString(a.styles.hint.Render("Enter create | Esc cancel"))
	return b.String()
}

func (a *App) renderChat() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render(a.activeRoom.Name))
	b.WriteString("\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.message.View())
	b.WriteString("\n")
	b.WriteString(a.styles.hint.Render("Enter send | PgUp/PgDn scroll | Esc back"))
	return b.String()
}

func (a *App) renderMessages() string {
	if len(a.messages) == 0 {
		return "No messages yet. Say hello!"
	}

	ownID := ""
	if s, ok := a.session.(authenticated); ok {
		ownID = s.Profile.ID
	}

	width := a.viewport.Width
	lines := make([]string, 0, len(a.messages)*2)
	for _, m := range a.messages {
		senderStyle := a.styles.sender
		if m.SenderID == ownID {
			senderStyle = a.styles.ownSender
		}
		ts := time.Unix(m.CreateDate, 0).Format("15:04:05")
		header := senderStyle.Render(m.SenderName) + " " + a.styles.timestamp.Render(ts)
		lines = append(lines, header)
		lines = append(lines, wrapLines([]string{m.Content}, width)...)
	}
	return strings.Join(lines, "\n")
}

func (a *App) refreshViewport() {
	atBottom := a.viewport.AtBottom()
	a.viewport.SetContent(a.renderMessages())
	if atBottom {
		a.viewport.GotoBottom()
	}
}

func (a *App) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.width = width
	a.height = height

	const reservedLines = 4
	viewportHeight := height - reservedLines
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	a.viewport.Width = width
	a.viewport.Height = viewportHeight

	inputWidth := width - 4
	if inputWidth < 10 {
		inputWidth = 10
	}
	a.message.Width = inputWidth
	a.refreshViewport()
}

func buildAuthBanner() string {
	fig := figure.NewColorFigure("QuChat", "3-d", "green", true)
	return strings.TrimRight(fig.String(), "\n")
}

func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	const minWidth = 10
	if width < minWidth {
		width = minWidth
	}

	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		segment := line
		if segment == "" {
			wrapped = append(wrapped, "")
			continue
		}
		for len(segment) > 0 {
			if runewidth.StringWidth(segment) <= width {
				wrapped = append(wrapped, segment)
				break
			}
			cut := wrapCutIndex(segment, width)
			part := strings.TrimRight(segment[:cut], " ")
			if part == "" && cut > 0 {
				part = segment[:cut]
			}
			wrapped = append(wrapped, part)
			segment = strings.TrimLeft(segment[cut:], " ")
			if segment == "" {
				break
			}
		}
	}
	return wrapped
}

func wrapCutIndex(s string, limit int) int {
	var width int
	lastSpace := -1
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > limit {
			if lastSpace >= 0 {
				return lastSpace + 1
			}
			if width == 0 {
				return i + 1
			}
			return i
		}
		width += rw
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}
	return len(s)
}
