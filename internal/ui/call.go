package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/faizanamer123/openassign-call/internal/call"
)

// CallUpdate is pushed into the call view from the adapter's callbacks.
// Zero fields are left unchanged.
type CallUpdate struct {
	State     *call.State
	PeerState string
	Local     *call.MediaState
	Remote    *call.MediaState
	Err       error
}

// Controls are the actions the call view can trigger.
type Controls struct {
	// ToggleAudio flips the microphone and returns the new state.
	ToggleAudio func() bool
	// ToggleVideo flips the camera and returns the new state.
	ToggleVideo func() bool
	Hangup      func()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// CallModel is the bubbletea model of a running call.
type CallModel struct {
	room string
	id   string

	state       call.State
	peerState   string
	local       call.MediaState
	remote      call.MediaState
	remoteKnown bool
	connectedAt time.Time
	err         error

	spinner  spinner.Model
	updates  <-chan CallUpdate
	done     <-chan struct{}
	controls Controls
	now      func() time.Time
	quitting bool
}

// NewCallModel creates the view for room as participant id.
func NewCallModel(room, id string, local call.MediaState, controls Controls, updates <-chan CallUpdate, done <-chan struct{}) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		room:     room,
		id:       id,
		local:    local,
		spinner:  s,
		updates:  updates,
		done:     done,
		controls: controls,
		now:      time.Now,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdates(), tickCmd())
}

// waitForUpdates listens for the next CallUpdate.
func (m *CallModel) waitForUpdates() tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-m.updates:
			return u
		case <-m.done:
			return nil
		}
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "m":
			if m.controls.ToggleAudio != nil {
				m.local.Audio = m.controls.ToggleAudio()
			}
		case "v":
			if m.controls.ToggleVideo != nil {
				m.local.Video = m.controls.ToggleVideo()
			}
		case "q", "ctrl+c":
			if m.controls.Hangup != nil {
				m.controls.Hangup()
			}
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if m.state != call.StateClosed {
			cmds = append(cmds, tickCmd())
		}

	case CallUpdate:
		m.apply(msg)
		if m.state == call.StateClosed {
			return m, tea.Quit
		}
		cmds = append(cmds, m.waitForUpdates())
	}

	return m, tea.Batch(cmds...)
}

func (m *CallModel) apply(u CallUpdate) {
	if u.State != nil {
		if *u.State == call.StateConnected && m.connectedAt.IsZero() {
			m.connectedAt = m.now()
		}
		m.state = *u.State
	}
	if u.PeerState != "" {
		m.peerState = u.PeerState
	}
	if u.Local != nil {
		m.local = *u.Local
	}
	if u.Remote != nil {
		m.remote = *u.Remote
		m.remoteKnown = true
	}
	if u.Err != nil {
		m.err = u.Err
	}
}

// State returns the last call state the view has seen.
func (m *CallModel) State() call.State {
	return m.state
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Call - %s", IconCall, m.room)))
	b.WriteString("\n\n")

	switch m.state {
	case call.StateIdle, call.StateJoining:
		fmt.Fprintf(&b, "%s Joining room...", m.spinner.View())

	case call.StateWaitingForPeer:
		b.WriteString(NewRoomInfo(m.room).View())
		fmt.Fprintf(&b, "\n\n%s Waiting for someone to join...", m.spinner.View())

	case call.StateNegotiating:
		fmt.Fprintf(&b, "%s %s Peer joined, connecting...", m.spinner.View(), IconPeer)

	case call.StateConnected:
		elapsed := m.now().Sub(m.connectedAt).Seconds()
		fmt.Fprintf(&b, "%s %s  %s %s",
			SuccessStyle.Render("In call"), StatusStyle.Render(formatDuration(elapsed)),
			IconTime, MutedStyle.Render(m.peerState))

	case call.StateClosed:
		b.WriteString(m.viewClosed())
	}

	b.WriteString("\n\n")
	b.WriteString(m.viewMedia())
	b.WriteString("\n" + FooterStyle.Render("m mute · v camera · q hang up"))
	return ContainerStyle.Render(b.String())
}

func (m *CallModel) viewMedia() string {
	line := fmt.Sprintf("You:  %s %s", micIcon(m.local.Audio), cameraIcon(m.local.Video))
	if m.remoteKnown {
		line += fmt.Sprintf("\nPeer: %s %s", micIcon(m.remote.Audio), cameraIcon(m.remote.Video))
	}
	return line
}

func (m *CallModel) viewClosed() string {
	if m.err == nil {
		return SuccessStyle.Render(IconHangup + " Call ended")
	}
	if errors.Is(m.err, call.ErrPeerLeft) {
		return WarningStyle.Render(IconHangup + " The other side hung up")
	}
	return ErrorBoxStyle.Render(FormatError(m.err))
}

func micIcon(on bool) string {
	if on {
		return IconMic
	}
	return IconMicOff
}

func cameraIcon(on bool) string {
	if on {
		return IconCamera
	}
	return IconCameraOff
}

// CallUI runs a CallModel in its own bubbletea program.
type CallUI struct {
	program *tea.Program
	model   *CallModel
	updates chan CallUpdate
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewCallUI creates the live call view.
func NewCallUI(room, id string, local call.MediaState, controls Controls) *CallUI {
	updates := make(chan CallUpdate, 32)
	done := make(chan struct{})
	return &CallUI{
		model:   NewCallModel(room, id, local, controls, updates, done),
		updates: updates,
		done:    done,
	}
}

// Start runs the program in a goroutine. It renders inline, leaving
// earlier terminal output visible.
func (u *CallUI) Start() {
	u.program = tea.NewProgram(u.model)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.closeDone()
		if _, err := u.program.Run(); err != nil {
			PrintErrorf("UI error: %v", err)
		}
	}()
}

// Send delivers an update, dropping it once the view has exited.
func (u *CallUI) Send(update CallUpdate) {
	select {
	case u.updates <- update:
	case <-u.done:
	}
}

// SetState is a shorthand for sending a state update.
func (u *CallUI) SetState(s call.State) {
	u.Send(CallUpdate{State: &s})
}

// Wait blocks until the program exits.
func (u *CallUI) Wait() {
	u.wg.Wait()
}

// Stop ends the program and waits for it.
func (u *CallUI) Stop() {
	u.closeDone()
	if u.program != nil {
		u.program.Quit()
	}
	u.wg.Wait()
}

func (u *CallUI) closeDone() {
	u.once.Do(func() { close(u.done) })
}

func formatDuration(seconds float64) string {
	if seconds < 1 {
		return "0s"
	}
	if seconds < 60 {
		return fmt.Sprintf("%.0fs", seconds)
	}
	if seconds < 3600 {
		mins := int(seconds) / 60
		secs := int(seconds) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(seconds) / 3600
	mins := (int(seconds) % 3600) / 60
	return fmt.Sprintf("%dh%02dm", hours, mins)
}
