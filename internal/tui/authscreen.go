package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// authMode is the selected tab of the auth screen.
type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

func (m authMode) String() string {
	if m == modeSignup {
		return "Sign up"
	}
	return "Login"
}

// authForm is the email/password form shared by both tabs.
type authForm struct {
	mode     authMode
	email    textinput.Model
	password textinput.Model
	focused  int // 0 email, 1 password
	busy     bool
	notice   string
	// alert blocks the form until dismissed.
	alert error
}

func newAuthForm() *authForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.Width = 32

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 32

	f := &authForm{email: email, password: password}
	f.focus()
	return f
}

func (f *authForm) focus() tea.Cmd {
	if f.focused == 1 {
		f.email.Blur()
		return f.password.Focus()
	}
	f.password.Blur()
	return f.email.Focus()
}

// reset clears the inputs and returns to the login tab.
func (f *authForm) reset() {
	f.mode = modeLogin
	f.email.Reset()
	f.password.Reset()
	f.focused = 0
	f.busy = false
	f.alert = nil
}

func (a *App) handleAuthKey(msg tea.KeyMsg) tea.Cmd {
	f := a.login
	if f.alert != nil {
		switch msg.String() {
		case "enter", keyEsc, " ":
			f.alert = nil
		}
		return nil
	}
	if f.busy {
		return nil
	}

	switch msg.String() {
	case "tab":
		f.mode = 1 - f.mode
		f.notice = ""
		return nil
	case keyEsc:
		return tea.Quit
	case "up", "shift+tab":
		f.focused = 0
		return f.focus()
	case "down":
		f.focused = 1
		return f.focus()
	case "enter":
		if f.focused == 0 {
			f.focused = 1
			return f.focus()
		}
		return a.submitAuth()
	}

	var cmd tea.Cmd
	if f.focused == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (a *App) submitAuth() tea.Cmd {
	f := a.login
	mode := f.mode
	email := strings.TrimSpace(f.email.Value())
	password := f.password.Value()
	f.busy = true
	f.notice = ""
	return func() tea.Msg {
		var err error
		if mode == modeSignup {
			err = a.auth.Signup(a.ctx, email, password)
		} else {
			err = a.auth.Login(a.ctx, email, password)
		}
		return authDoneMsg{mode: mode, err: err}
	}
}

func (a *App) handleAuthDone(msg authDoneMsg) tea.Cmd {
	f := a.login
	f.busy = false
	if msg.err != nil {
		f.alert = msg.err
		return nil
	}
	if msg.mode == modeSignup {
		f.mode = modeLogin
		f.password.Reset()
		f.focused = 1
		f.notice = "Account created. Log in with your new credentials."
		return f.focus()
	}
	a.log.Info().Msg("logged in")
	return a.enterTasks()
}

func (a *App) viewAuth() string {
	f := a.login

	tabs := make([]string, 0, 2)
	for _, m := range []authMode{modeLogin, modeSignup} {
		if m == f.mode {
			tabs = append(tabs, activeTabStyle.Render(m.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(m.String()))
		}
	}

	label := func(i int, s string) string {
		if i == f.focused {
			return activeLabelStyle.Render(s)
		}
		return labelStyle.Render(s)
	}

	submit := "enter:" + strings.ToLower(f.mode.String())
	if f.busy {
		submit = a.spinner.View() + " working..."
	}

	parts := []string{
		titleStyle.Render("taskdesk"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		label(0, "Email") + f.email.View(),
		label(1, "Password") + f.password.View(),
		"",
		dimStyle.Render(submit + "  tab:switch  ↑/↓:field  esc:quit"),
	}
	if f.notice != "" {
		parts = append(parts, "", noticeStyle.Render(f.notice))
	}
	form := dialogStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))

	if f.alert != nil {
		alert := alertStyle.Render(errorStyle.Render(f.mode.String()+" failed") + "\n\n" +
			f.alert.Error() + "\n\n" + dimStyle.Render("enter:ok"))
		form = lipgloss.JoinVertical(lipgloss.Center, form, alert)
	}
	return a.center(form)
}

