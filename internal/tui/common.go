package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/innerglow/internal/feed"
	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewJournal viewState = iota
	viewVoice
	viewTracker
	viewRituals
	viewResources
	viewProfile
)

var viewNames = []string{"Journal", "Voice", "Tracker", "Rituals", "Resources", "Profile"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// alertMsg raises the blocking alert overlay.
type alertMsg struct {
	title string
	text  string
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
	size int64
}

type sessionMsg struct {
	event session.Event
	ok    bool
}

type snapshotMsg struct {
	view viewState
	sub  *feed.Subscription
	snap store.Snapshot
	ok   bool
}

type restoredMsg struct {
	user *store.User
	err  error
}

func alertCmd(title string, err error) tea.Cmd {
	return func() tea.Msg {
		return alertMsg{title: title, text: err.Error()}
	}
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

// --- Feed ---

// feedClient is a view's handle on the shared snapshot feed.
type feedClient struct {
	view    viewState
	hub     *feed.Hub
	sub     *feed.Subscription
	spin    spinner.Model
	loading bool
	loaded  bool
	snap    store.Snapshot
}

func newFeedClient(v viewState, hub *feed.Hub) feedClient {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return feedClient{view: v, hub: hub, spin: s}
}

// subscribe drops any previous subscription and joins owner's feed. An empty
// owner only clears.
func (f *feedClient) subscribe(owner string) tea.Cmd {
	f.close()
	f.snap = store.Snapshot{}
	f.loaded = false
	if owner == "" || f.hub == nil {
		return nil
	}
	sub, err := f.hub.Subscribe(context.Background(), owner)
	if err != nil {
		if errors.Is(err, feed.ErrClosed) {
			return nil
		}
		return alertCmd("Could not load your entries", err)
	}
	f.sub = sub
	f.loading = true
	f.spin.Style = accentStyle
	return tea.Batch(waitForSnapshot(f.view, sub), f.spin.Tick)
}

func (f *feedClient) close() {
	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
	}
	f.loading = false
}

// accept takes a snapshot meant for this client and returns the command that
// waits for the next one.
func (f *feedClient) accept(msg snapshotMsg) (bool, tea.Cmd) {
	if msg.view != f.view || msg.sub == nil || msg.sub != f.sub {
		return false, nil
	}
	if !msg.ok {
		return false, nil
	}
	f.snap = msg.snap
	f.loading = false
	f.loaded = true
	return true, waitForSnapshot(f.view, f.sub)
}

func (f *feedClient) updateSpinner(msg spinner.TickMsg) tea.Cmd {
	if !f.loading {
		return nil
	}
	var cmd tea.Cmd
	f.spin, cmd = f.spin.Update(msg)
	return cmd
}

func (f feedClient) loadingView(what string) string {
	return f.spin.View() + mutedStyle.Render(" Loading "+what+"...")
}

func waitForSnapshot(v viewState, sub *feed.Subscription) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub.Updates()
		return snapshotMsg{view: v, sub: sub, snap: snap, ok: ok}
	}
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
