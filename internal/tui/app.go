// Package tui implements the taskdesk terminal UI: the login screen, the
// task grid and its editor, comment and confirmation dialogs. All list
// state lives in a tasklist.Controller; the UI renders its snapshots.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/twiced-technology-gmbh/taskdesk/internal/tasklist"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// screen is the top-level page.
type screen int

const (
	screenAuth screen = iota
	screenTasks
)

// view is the dialog shown over the task grid.
type view int

const (
	viewGrid view = iota
	viewEditor
	viewComments
	viewConfirmDelete
	viewConfirmDeleteComment
	viewDueRange
)

// Key and layout constants.
const (
	keyEsc = "esc"

	gridChrome   = 7 // title, filters, blank, footer, help, status bar, spare
	tickInterval = 30 * time.Second
)

// Authenticator is the login backend.
type Authenticator interface {
	Signup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Options configures an App.
type Options struct {
	Auth       Authenticator
	Controller *tasklist.Controller
	// Invalidate re-fetches tasks and users; called after a config reload.
	Invalidate    func()
	MarkdownStyle string
	Log           zerolog.Logger
	// Context bounds every backend call. Defaults to context.Background.
	Context context.Context
}

// App is the top-level bubbletea model.
type App struct {
	auth       Authenticator
	ctrl       *tasklist.Controller
	invalidate func()
	log        zerolog.Logger
	ctx        context.Context
	mdStyle    string
	now        func() time.Time

	screen  screen
	view    view
	width   int
	height  int
	started bool

	st      tasklist.State
	err     error
	notice  string
	spinner spinner.Model
	help    help.Model
	keys    gridKeys

	login    *authForm
	grid     *grid
	editor   *editorForm
	comments *commentPane

	deleteID    string
	deleteTitle string
}

// New creates the application model.
func New(opts Options) *App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	invalidate := opts.Invalidate
	if invalidate == nil {
		invalidate = func() {}
	}
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(loadingStyle))
	a := &App{
		auth:       opts.Auth,
		ctrl:       opts.Controller,
		invalidate: invalidate,
		log:        opts.Log,
		ctx:        ctx,
		mdStyle:    opts.MarkdownStyle,
		now:        time.Now,
		spinner:    sp,
		help:       help.New(),
		keys:       newGridKeys(),
		login:      newAuthForm(),
		grid:       newGrid(),
		editor:     newEditorForm(),
		comments:   newCommentPane(),
	}
	return a
}

// SetNow overrides the clock used for comment times (for testing).
func (a *App) SetNow(fn func() time.Time) {
	a.now = fn
}

// --- Messages ---

// ChangedMsg tells the UI that the controller state changed.
type ChangedMsg struct{}

// ReloadMsg is sent by the config watcher after config.yml changed.
// Err is set when the new file could not be loaded.
type ReloadMsg struct {
	Identity task.Identity
	Err      error
}

// TickMsg is sent periodically to refresh relative times.
type TickMsg struct{}

type authCheckedMsg struct {
	ok  bool
	err error
}

type authDoneMsg struct {
	mode authMode
	err  error
}

type opDoneMsg struct {
	op  string
	err error
}

// Operations reported through opDoneMsg.
const (
	opSave          = "save"
	opDelete        = "delete"
	opAddComment    = "add-comment"
	opDeleteComment = "delete-comment"
	opLogout        = "logout"
)

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.checkAuth, a.spinner.Tick, tickCmd(), a.login.focus())
}

func (a *App) checkAuth() tea.Msg {
	ok, err := a.auth.IsAuthenticated(a.ctx)
	return authCheckedMsg{ok: ok, err: err}
}

// run executes fn off the event loop and reports the result as op.
func (a *App) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.screen == screenAuth {
			return a, a.handleAuthKey(msg)
		}
		return a, a.handleTasksKey(msg)
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.grid.resize(msg.Width, msg.Height-gridChrome, a.st.Params.Sort)
		a.editor.resize(msg.Width)
		a.comments.resize(msg.Width)
		return a, nil
	case authCheckedMsg:
		if msg.err != nil {
			a.login.alert = msg.err
			return a, nil
		}
		if msg.ok {
			return a, a.enterTasks()
		}
		return a, nil
	case authDoneMsg:
		return a, a.handleAuthDone(msg)
	case opDoneMsg:
		return a, a.handleOpDone(msg)
	case ChangedMsg:
		a.sync()
		return a, nil
	case ReloadMsg:
		a.handleReload(msg)
		return a, nil
	case TickMsg:
		return a, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// enterTasks switches to the task screen, opening the subscriptions on
// first entry.
func (a *App) enterTasks() tea.Cmd {
	a.screen = screenTasks
	a.view = viewGrid
	a.login.reset()
	if !a.started {
		if err := a.ctrl.Start(); err != nil {
			a.err = err
			return nil
		}
		a.started = true
	} else {
		a.ctrl.Refresh()
	}
	a.sync()
	return nil
}

func (a *App) handleReload(msg ReloadMsg) {
	if msg.Err != nil {
		a.err = msg.Err
		a.log.Warn().Err(msg.Err).Msg("config reload")
		return
	}
	a.ctrl.SetIdentity(msg.Identity)
	a.invalidate()
	a.notice = "Config reloaded"
	a.sync()
}

func (a *App) handleOpDone(msg opDoneMsg) tea.Cmd {
	a.sync()
	switch msg.op {
	case opSave:
		if msg.err != nil {
			// The controller keeps the editor open with the error.
			return nil
		}
		a.view = viewGrid
		a.notice = "Task saved"
	case opDelete:
		a.view = viewGrid
		if msg.err != nil {
			a.err = msg.err
			return nil
		}
		a.notice = "Task deleted"
		a.grid.clampCursor(len(a.st.Tasks))
	case opAddComment:
		if msg.err != nil {
			a.comments.notice = msg.err.Error()
			return nil
		}
		a.comments.input.Reset()
	case opDeleteComment:
		a.view = viewComments
		if msg.err != nil {
			a.comments.notice = msg.err.Error()
		}
	case opLogout:
		if msg.err != nil {
			a.err = msg.err
			return nil
		}
		a.screen = screenAuth
		a.view = viewGrid
		a.login.reset()
		return a.login.focus()
	}
	return nil
}

// sync copies the controller state into the view.
func (a *App) sync() {
	if a.ctrl == nil {
		return
	}
	a.st = a.ctrl.Snapshot()
	a.grid.setRows(a.st.Tasks)
	if a.view == viewComments && a.st.Comments == nil {
		a.view = viewGrid
	}
	a.comments.clamp(a.st.Comments)
	if a.view == viewEditor && a.st.Editor == nil {
		a.view = viewGrid
	}
}

func (a *App) handleTasksKey(msg tea.KeyMsg) tea.Cmd {
	switch a.view {
	case viewEditor:
		return a.handleEditorKey(msg)
	case viewComments:
		return a.handleCommentsKey(msg)
	case viewConfirmDelete:
		return a.handleDeleteKey(msg)
	case viewConfirmDeleteComment:
		return a.handleDeleteCommentKey(msg)
	case viewDueRange:
		return a.handleDueKey(msg)
	default:
		return a.handleGridKey(msg)
	}
}

func (a *App) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		id := a.deleteID
		return a.run(opDelete, func(ctx context.Context) error {
			return a.ctrl.Delete(ctx, id)
		})
	case "n", "N", keyEsc, "q":
		a.view = viewGrid
	}
	return nil
}

func (a *App) logout() tea.Cmd {
	return a.run(opLogout, a.auth.Logout)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	if a.screen == screenAuth {
		return a.viewAuth()
	}

	switch a.view {
	case viewEditor:
		return a.viewEditor()
	case viewComments:
		return a.viewComments()
	case viewConfirmDelete:
		return a.viewDeleteConfirm()
	case viewConfirmDeleteComment:
		return a.viewDeleteCommentConfirm()
	case viewDueRange:
		return a.viewDueRange()
	default:
		return a.viewGrid()
	}
}

func (a *App) renderStatusBar() string {
	line := ""
	switch {
	case a.err != nil:
		line = errorStyle.Render(truncate("Error: "+a.err.Error(), a.width))
	case a.st.MutationErr != nil:
		line = errorStyle.Render(truncate("Error: "+a.st.MutationErr.Error(), a.width))
	case a.notice != "":
		line = noticeStyle.Render(truncate(a.notice, a.width))
	}
	who := "no identity"
	if a.st.Identity.Known() {
		who = a.st.Identity.Name
		if who == "" {
			who = a.st.Identity.UserID
		}
	}
	status := statusBarStyle.Render(truncate(" signed in | commenting as "+who+" | L:log out", a.width))
	if line == "" {
		return status
	}
	return line + "\n" + status
}

func (a *App) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		"  " + a.deleteTitle + "\n" +
		dimStyle.Render("  "+a.deleteID) + "\n\n" +
		dimStyle.Render("y:yes  n:no")
	return a.center(dialogStyle.Render(content))
}

func (a *App) center(s string) string {
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, s)
}

// clearToast drops the one-shot notice and error on the next key press.
func (a *App) clearToast() {
	a.notice = ""
	a.err = nil
}
